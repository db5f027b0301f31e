package reliabilityconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trustscore/internal/bootstrap/logging"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/usecase/reliability"
)

const maxShownHistory = 6

// Service is the part of the reliability service the console reads.
type Service interface {
	Report(ctx context.Context, kind domainreliability.ModelKind, opts reliability.ReportOptions) (reliability.Report, error)
	Detail(ctx context.Context, ref domainreliability.EntityRef) (reliability.Detail, error)
	History(ctx context.Context, ref domainreliability.EntityRef) ([]domainreliability.AuditLogEntry, error)
	VerifyLogs(ctx context.Context, kind domainreliability.ModelKind, id string, limit int) (reliability.VerificationReport, error)
}

type listView string

const (
	viewAttention listView = "attention"
	viewTop       listView = "top"
)

type Options struct {
	Kind            domainreliability.ModelKind
	Limit           int
	RefreshInterval time.Duration
}

type consoleModel struct {
	ctx             context.Context
	service         Service
	kind            domainreliability.ModelKind
	limit           int
	refreshInterval time.Duration

	view          listView
	report        reliability.Report
	items         []domainreliability.Summary
	selectedIndex int
	detail        reliability.Detail
	hasDetail     bool
	history       []domainreliability.AuditLogEntry
	status        string
}

type reportLoadedMsg struct {
	report reliability.Report
	err    error
}

type detailLoadedMsg struct {
	ref     domainreliability.EntityRef
	detail  reliability.Detail
	history []domainreliability.AuditLogEntry
	err     error
}

type verifyDoneMsg struct {
	ref    domainreliability.EntityRef
	report reliability.VerificationReport
	err    error
}

type tickMsg struct{}

func NewModel(ctx context.Context, service Service, options Options) tea.Model {
	limit := options.Limit
	if limit <= 0 {
		limit = reliability.DefaultReportLimit
	}
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &consoleModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "usecase.reliabilityconsole")),
		service:         service,
		kind:            options.Kind,
		limit:           limit,
		refreshInterval: interval,
		view:            viewAttention,
		status:          "loading",
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.loadReportCmd(), m.tickCmd())
}

func (m *consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadReportCmd(), m.tickCmd())
	case reportLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			logging.Warn(m.ctx, "console refresh failed", slog.String("err", msg.err.Error()))
			return m, nil
		}
		m.report = msg.report
		m.applyView()
		if len(m.items) == 0 {
			m.hasDetail = false
			m.status = "no entities in view"
			return m, nil
		}
		m.status = fmt.Sprintf("refreshed, %d entities", len(m.items))
		return m, m.loadSelectedDetailCmd()
	case detailLoadedMsg:
		if !m.isSelected(msg.ref) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.history = msg.history
		m.hasDetail = true
		return m, nil
	case verifyDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("verify %s failed: %v", msg.ref, msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("verify %s: %d ok, %d failed", msg.ref, msg.report.Verified, msg.report.Failed)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadReportCmd()
		case "t":
			if m.view == viewAttention {
				m.view = viewTop
			} else {
				m.view = viewAttention
			}
			m.selectedIndex = 0
			m.applyView()
			return m, m.loadSelectedDetailCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.items)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "v":
			return m, m.verifySelectedCmd()
		}
	}
	return m, nil
}

func (m *consoleModel) applyView() {
	if m.view == viewTop {
		m.items = m.report.TopScoring
	} else {
		m.items = m.report.NeedingAttention
	}
	if m.selectedIndex >= len(m.items) {
		m.selectedIndex = len(m.items) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

func (m *consoleModel) selected() (domainreliability.Summary, bool) {
	if len(m.items) == 0 {
		return domainreliability.Summary{}, false
	}
	return m.items[m.selectedIndex], true
}

func (m *consoleModel) isSelected(ref domainreliability.EntityRef) bool {
	s, ok := m.selected()
	return ok && s.Ref == ref
}

func (m *consoleModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Reliability Console"))
	b.WriteString("\n")
	stats := m.report.Stats
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"model=%s entities=%d avg=%.3f completeness=%.1f%% view=%s refresh=%s",
		m.kind, stats.Count, stats.AvgScore, stats.AvgCompleteness, m.view, m.refreshInterval,
	)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(viewTitle(m.view)))
	b.WriteString("\n")
	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("- none"))
		b.WriteString("\n")
	}
	for i, s := range m.items {
		line := fmt.Sprintf("%-12s score=%s completeness=%.1f%% %s", s.Ref.ID, formatScore(s.TotalScore), s.CompletenessPercent, s.ScoringVersion)
		if i == m.selectedIndex {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Detail"))
	b.WriteString("\n")
	if !m.hasDetail {
		b.WriteString(dimStyle.Render("- no detail"))
		b.WriteString("\n\n")
	} else {
		s := m.detail.Summary
		b.WriteString(fmt.Sprintf("%s badge=%s last=%s by %s\n", s.Ref, m.detail.Badge, s.LastCalculated, s.LastSource))
		for _, f := range m.detail.Fields {
			b.WriteString(fmt.Sprintf("  %-26s %-5s %s\n", f.Field, formatScore(f.Score), f.Notes))
		}
		b.WriteString("\nHistory:\n")
		start := len(m.history) - maxShownHistory
		if start < 0 {
			start = 0
		}
		for _, e := range m.history[start:] {
			delta := "new"
			if d := e.Delta(); d != nil {
				delta = fmt.Sprintf("%+.3f", *d)
			}
			b.WriteString(fmt.Sprintf("- %s %s -> %s (%s) %s\n", e.Created, delta, formatScore(e.ToTotalScore), e.Source, e.Message))
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Status"))
	b.WriteString("\n- ")
	b.WriteString(firstNonEmpty(m.status, "ready"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Keys: up/k down/j move  t toggle view  v verify  g refresh  q quit"))
	return b.String()
}

func viewTitle(v listView) string {
	if v == viewTop {
		return "Top scoring"
	}
	return "Needing attention"
}

func (m *consoleModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *consoleModel) loadReportCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.service.Report(m.ctx, m.kind, reliability.ReportOptions{TopLimit: m.limit})
		return reportLoadedMsg{report: report, err: err}
	}
}

func (m *consoleModel) loadSelectedDetailCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		return nil
	}
	ref := selected.Ref
	return func() tea.Msg {
		detail, err := m.service.Detail(m.ctx, ref)
		if err != nil {
			return detailLoadedMsg{ref: ref, err: err}
		}
		history, err := m.service.History(m.ctx, ref)
		return detailLoadedMsg{ref: ref, detail: detail, history: history, err: err}
	}
}

func (m *consoleModel) verifySelectedCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		return nil
	}
	ref := selected.Ref
	return func() tea.Msg {
		report, err := m.service.VerifyLogs(m.ctx, ref.Kind, ref.ID, 0)
		return verifyDoneMsg{ref: ref, report: report, err: err}
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

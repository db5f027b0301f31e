package reliabilityconsole

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/usecase/reliability"
)

type fakeService struct {
	report   reliability.Report
	verified map[string]int
	failDet  bool
}

func (f *fakeService) Report(context.Context, domainreliability.ModelKind, reliability.ReportOptions) (reliability.Report, error) {
	return f.report, nil
}

func (f *fakeService) Detail(_ context.Context, ref domainreliability.EntityRef) (reliability.Detail, error) {
	if f.failDet {
		return reliability.Detail{}, errors.New("boom")
	}
	return reliability.Detail{
		Summary: domainreliability.Summary{Ref: ref, TotalScore: 0.4},
		Fields:  []domainreliability.FieldScore{{Field: "title", Score: 1, Notes: "Title present and valid"}},
		Badge:   domainreliability.BadgePoor,
	}, nil
}

func (f *fakeService) History(context.Context, domainreliability.EntityRef) ([]domainreliability.AuditLogEntry, error) {
	from := 0.2
	return []domainreliability.AuditLogEntry{
		{ToTotalScore: 0.2, Source: "system", Message: "first"},
		{FromTotalScore: &from, ToTotalScore: 0.4, Source: "admin", Message: "second"},
	}, nil
}

func (f *fakeService) VerifyLogs(_ context.Context, _ domainreliability.ModelKind, id string, _ int) (reliability.VerificationReport, error) {
	return reliability.VerificationReport{Verified: f.verified[id]}, nil
}

func summary(id string, score float64) domainreliability.Summary {
	return domainreliability.Summary{Ref: domainreliability.NewEntityRef(domainreliability.ModelProducts, id), TotalScore: score}
}

func newTestModel(svc *fakeService) *consoleModel {
	return NewModel(context.Background(), svc, Options{Kind: domainreliability.ModelProducts}).(*consoleModel)
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *consoleModel, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if msg == nil {
		return
	}
	_, next := m.Update(msg)
	run(t, m, next)
}

func TestConsoleLoadsAttentionViewAndDetail(t *testing.T) {
	svc := &fakeService{report: reliability.Report{
		NeedingAttention: []domainreliability.Summary{summary("7", 0.4), summary("8", 0.5)},
		TopScoring:       []domainreliability.Summary{summary("1", 0.98)},
	}}
	m := newTestModel(svc)

	run(t, m, m.loadReportCmd())
	if len(m.items) != 2 || !m.hasDetail || m.detail.Summary.Ref.ID != "7" {
		t.Fatalf("model after load = items %d, detail %v %q", len(m.items), m.hasDetail, m.detail.Summary.Ref.ID)
	}
	view := m.View()
	for _, want := range []string{"Needing attention", "Products:7", "+0.200", "Title present and valid"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View() missing %q:\n%s", want, view)
		}
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	run(t, m, cmd)
	if m.selectedIndex != 1 || m.detail.Summary.Ref.ID != "8" {
		t.Fatalf("after down: index %d, detail %q", m.selectedIndex, m.detail.Summary.Ref.ID)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	run(t, m, cmd)
	if m.view != viewTop || len(m.items) != 1 || m.selectedIndex != 0 || m.detail.Summary.Ref.ID != "1" {
		t.Fatalf("after toggle: view %s, items %d, index %d", m.view, len(m.items), m.selectedIndex)
	}
}

func TestConsoleVerifyAndErrors(t *testing.T) {
	svc := &fakeService{
		report:   reliability.Report{NeedingAttention: []domainreliability.Summary{summary("7", 0.4)}},
		verified: map[string]int{"7": 3},
	}
	m := newTestModel(svc)
	run(t, m, m.loadReportCmd())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	run(t, m, cmd)
	if !strings.Contains(m.status, "3 ok, 0 failed") {
		t.Fatalf("status = %q", m.status)
	}

	svc.failDet = true
	run(t, m, m.loadSelectedDetailCmd())
	if m.hasDetail || !strings.Contains(m.status, "detail failed") {
		t.Fatalf("detail error not surfaced: %v %q", m.hasDetail, m.status)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q returned %T, want tea.QuitMsg", cmd())
	}
}

package reliability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trustscore/internal/bootstrap/logging"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/ports"
)

const (
	DefaultAttentionScore        = 0.70
	DefaultAttentionCompleteness = 80.0
	DefaultSignificantDelta      = 0.25
	DefaultReportLimit           = 10
)

var errReadersRequired = errors.New("reliability readers are required")

func summaryCacheKey(ref domainreliability.EntityRef) string {
	return "reliability:summary:" + ref.String()
}

// FindSummary returns the stored summary of ref, reading through the cache
// when one is configured.
func (s *Service) FindSummary(ctx context.Context, ref domainreliability.EntityRef) (domainreliability.Summary, error) {
	if ctx == nil {
		return domainreliability.Summary{}, errors.New("context is required")
	}
	if err := ref.Validate(); err != nil {
		return domainreliability.Summary{}, err
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.reliability"), slog.String("entity_id", ref.ID))
	if cached, ok := s.cachedSummary(logCtx, ref); ok {
		return cached, nil
	}

	gen := s.cacheGeneration()
	summary, err := s.summaries.FindByKey(ctx, ref)
	if err != nil {
		return domainreliability.Summary{}, err
	}
	s.cacheSummaryBestEffort(logCtx, summary, gen)
	return summary, nil
}

// Detail is a summary with its field rows and display badge.
type Detail struct {
	Summary domainreliability.Summary
	Fields  []domainreliability.FieldScore
	Badge   domainreliability.Badge
}

func (s *Service) Detail(ctx context.Context, ref domainreliability.EntityRef) (Detail, error) {
	summary, err := s.FindSummary(ctx, ref)
	if err != nil {
		return Detail{}, err
	}

	var fields []domainreliability.FieldScore
	if s.fieldReader != nil {
		fields, err = s.fieldReader.ListByKey(ctx, ref)
	} else {
		fields, err = summary.FieldScores()
	}
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		Summary: summary,
		Fields:  fields,
		Badge:   domainreliability.BadgeFor(summary.TotalScore, s.cfg.UI),
	}, nil
}

// History lists the audit chain of ref, oldest first.
func (s *Service) History(ctx context.Context, ref domainreliability.EntityRef) ([]domainreliability.AuditLogEntry, error) {
	if s.logReader == nil {
		return nil, errReadersRequired
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.logReader.ListByKey(ctx, ref)
}

// ListLogs filters audit entries of one kind. Since accepts any RFC3339
// time and is rewritten to the stored timestamp layout.
func (s *Service) ListLogs(ctx context.Context, filter ports.AuditLogFilter) ([]domainreliability.AuditLogEntry, error) {
	if s.logReader == nil {
		return nil, errReadersRequired
	}
	if since := strings.TrimSpace(filter.Since); since != "" {
		t, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			return nil, fmt.Errorf("%w: since must be an RFC3339 time: %w", domainreliability.ErrPrecondition, err)
		}
		filter.Since = domainreliability.FormatTimestamp(t)
	}
	return s.logReader.ListByModel(ctx, filter)
}

type ReportOptions struct {
	TopLimit              int
	MinTopScore           float64
	AttentionScore        float64
	AttentionCompleteness float64
	SignificantDelta      float64
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.TopLimit <= 0 {
		o.TopLimit = DefaultReportLimit
	}
	if o.AttentionScore <= 0 {
		o.AttentionScore = DefaultAttentionScore
	}
	if o.AttentionCompleteness <= 0 {
		o.AttentionCompleteness = DefaultAttentionCompleteness
	}
	if o.SignificantDelta <= 0 {
		o.SignificantDelta = DefaultSignificantDelta
	}
	return o
}

// TrendCounts tallies consecutive changes by direction.
type TrendCounts struct {
	Improvement int
	Degradation int
	NoChange    int
}

type Report struct {
	Kind               domainreliability.ModelKind
	Stats              ports.SummaryStats
	Versions           []ports.VersionCount
	Fields             []ports.FieldStat
	TopScoring         []domainreliability.Summary
	NeedingAttention   []domainreliability.Summary
	SignificantChanges []domainreliability.AuditLogEntry
	Trends             TrendCounts
	Activity           []ports.SourceCount
}

// Report aggregates the read-side queries of one model kind.
func (s *Service) Report(ctx context.Context, kind domainreliability.ModelKind, opts ReportOptions) (Report, error) {
	if ctx == nil {
		return Report{}, errors.New("context is required")
	}
	if s.summaryReader == nil || s.fieldReader == nil || s.logReader == nil {
		return Report{}, errReadersRequired
	}
	opts = opts.withDefaults()

	report := Report{Kind: kind}
	var err error
	if report.Stats, err = s.summaryReader.Stats(ctx, kind); err != nil {
		return Report{}, err
	}
	if report.Versions, err = s.summaryReader.ScoringVersions(ctx, kind); err != nil {
		return Report{}, err
	}
	if report.Fields, err = s.fieldReader.FieldStats(ctx, kind); err != nil {
		return Report{}, err
	}
	if report.TopScoring, err = s.summaryReader.TopScoring(ctx, kind, opts.TopLimit, opts.MinTopScore); err != nil {
		return Report{}, err
	}
	if report.NeedingAttention, err = s.summaryReader.NeedingAttention(ctx, kind, opts.AttentionScore, opts.AttentionCompleteness, opts.TopLimit); err != nil {
		return Report{}, err
	}
	if report.SignificantChanges, err = s.logReader.SignificantChanges(ctx, kind, opts.SignificantDelta, opts.TopLimit); err != nil {
		return Report{}, err
	}
	if report.Activity, err = s.logReader.ActivityBySource(ctx, kind); err != nil {
		return Report{}, err
	}

	entries, err := s.logReader.ListByModel(ctx, ports.AuditLogFilter{Kind: kind})
	if err != nil {
		return Report{}, err
	}
	report.Trends = countTrends(entries)
	return report, nil
}

func countTrends(entries []domainreliability.AuditLogEntry) TrendCounts {
	var counts TrendCounts
	for _, e := range entries {
		delta := e.Delta()
		if delta == nil {
			continue
		}
		switch domainreliability.TrendFor(*delta) {
		case domainreliability.TrendImprovement:
			counts.Improvement++
		case domainreliability.TrendDegradation:
			counts.Degradation++
		default:
			counts.NoChange++
		}
	}
	return counts
}

func (s *Service) cachedSummary(ctx context.Context, ref domainreliability.EntityRef) (domainreliability.Summary, bool) {
	if s.cache == nil {
		return domainreliability.Summary{}, false
	}
	raw, found, err := s.cache.Get(ctx, summaryCacheKey(ref))
	if err != nil {
		logging.Warn(ctx, "read summary cache failed", slog.Any("err", errs.Loggable(err)))
		return domainreliability.Summary{}, false
	}
	if !found {
		return domainreliability.Summary{}, false
	}
	var summary domainreliability.Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		logging.Warn(ctx, "decode cached summary failed", slog.Any("err", errs.Loggable(err)))
		return domainreliability.Summary{}, false
	}
	return summary, true
}

func (s *Service) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// cacheSummaryBestEffort stores summary unless an invalidation ran after gen
// was read, in which case summary may predate the committed row.
func (s *Service) cacheSummaryBestEffort(ctx context.Context, summary domainreliability.Summary, gen uint64) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen != gen {
		logging.Debug(ctx, "skip summary cache fill after concurrent recalculation")
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey(summary.Ref), string(raw), s.cacheTTL); err != nil {
		logging.Warn(ctx, "write summary cache failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) invalidateSummaryBestEffort(ctx context.Context, ref domainreliability.EntityRef) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	if err := s.cache.Delete(ctx, summaryCacheKey(ref)); err != nil {
		logging.Warn(ctx, "invalidate summary cache failed", slog.Any("err", errs.Loggable(err)))
	}
}

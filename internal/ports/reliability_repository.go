package ports

import (
	"context"
	"errors"

	"trustscore/internal/domain/reliability"
)

var ErrSummaryNotFound = errors.New("reliability summary not found")

// SummaryRepository owns the one-row-per-entity score summary.
type SummaryRepository interface {
	FindByKey(ctx context.Context, ref reliability.EntityRef) (reliability.Summary, error)
	// Upsert inserts or replaces the summary of s.Ref and returns the stored row.
	Upsert(ctx context.Context, s reliability.Summary) (reliability.Summary, error)
	// LockKey serializes writers of ref until the ambient transaction ends.
	LockKey(ctx context.Context, ref reliability.EntityRef) error
}

type FieldScoreRepository interface {
	DeleteAllByKey(ctx context.Context, ref reliability.EntityRef) error
	InsertMany(ctx context.Context, ref reliability.EntityRef, scores []reliability.FieldScore) error
}

// AuditLogRepository is append-only.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry reliability.AuditLogEntry) error
}

type SummaryStats struct {
	Count           int64
	AvgScore        float64
	MinScore        float64
	MaxScore        float64
	AvgCompleteness float64
}

type VersionCount struct {
	ScoringVersion string
	Count          int64
}

type FieldStat struct {
	Field     string
	Count     int64
	AvgScore  float64
	MinScore  float64
	MaxScore  float64
	AvgWeight float64
}

type SourceCount struct {
	Source string
	Count  int64
}

type SummaryReader interface {
	TopScoring(ctx context.Context, kind reliability.ModelKind, limit int, minScore float64) ([]reliability.Summary, error)
	NeedingAttention(ctx context.Context, kind reliability.ModelKind, maxScore float64, maxCompleteness float64, limit int) ([]reliability.Summary, error)
	Stats(ctx context.Context, kind reliability.ModelKind) (SummaryStats, error)
	ScoringVersions(ctx context.Context, kind reliability.ModelKind) ([]VersionCount, error)
}

type FieldScoreReader interface {
	ListByKey(ctx context.Context, ref reliability.EntityRef) ([]reliability.FieldScore, error)
	FieldStats(ctx context.Context, kind reliability.ModelKind) ([]FieldStat, error)
}

// AuditLogFilter selects log rows of one kind. Empty fields do not filter;
// Since is an inclusive RFC3339 lower bound on created.
type AuditLogFilter struct {
	Kind        reliability.ModelKind
	ID          string
	Source      string
	Since       string
	Limit       int
	NewestFirst bool
}

type AuditLogReader interface {
	ListByKey(ctx context.Context, ref reliability.EntityRef) ([]reliability.AuditLogEntry, error)
	ListByModel(ctx context.Context, filter AuditLogFilter) ([]reliability.AuditLogEntry, error)
	SignificantChanges(ctx context.Context, kind reliability.ModelKind, minDelta float64, limit int) ([]reliability.AuditLogEntry, error)
	ActivityBySource(ctx context.Context, kind reliability.ModelKind) ([]SourceCount, error)
}

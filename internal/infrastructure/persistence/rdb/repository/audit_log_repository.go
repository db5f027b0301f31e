package repository

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/persistence/rdb/model"
	"trustscore/internal/ports"
)

const jsonNull = "null"

// AuditLogRepository appends to reliability_logs. It exposes no update or
// delete.
type AuditLogRepository struct {
	db *gorm.DB
}

var (
	_ ports.AuditLogRepository = (*AuditLogRepository)(nil)
	_ ports.AuditLogReader     = (*AuditLogRepository)(nil)
)

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert numbers the entry after the last one of its entity. A concurrent
// writer that read the same sequence fails on uq_reliability_logs_seq.
func (r *AuditLogRepository) Insert(ctx context.Context, entry reliability.AuditLogEntry) error {
	return inTx(r.db, ctx, func(db *gorm.DB) error {
		var last int64
		if err := db.Model(&model.ReliabilityLog{}).
			Select("COALESCE(MAX(seq), 0)").
			Where("model = ? AND foreign_key = ?", string(entry.Ref.Kind), entry.Ref.ID).
			Scan(&last).Error; err != nil {
			return errs.Wrap(err, "query last log sequence")
		}

		from := jsonNull
		if entry.FromFieldScoresJSON != nil {
			from = *entry.FromFieldScoresJSON
		}
		row := model.ReliabilityLog{
			ID:                  entry.ID,
			Model:               string(entry.Ref.Kind),
			ForeignKey:          entry.Ref.ID,
			FromTotalScore:      entry.FromTotalScore,
			ToTotalScore:        entry.ToTotalScore,
			FromFieldScoresJSON: datatypes.JSON(from),
			ToFieldScoresJSON:   datatypes.JSON(entry.ToFieldScoresJSON),
			Source:              entry.Source,
			ActorUserID:         entry.ActorUserID,
			ActorService:        entry.ActorService,
			Message:             entry.Message,
			Created:             entry.Created,
			Seq:                 last + 1,
			ChecksumSHA256:      entry.ChecksumSHA256,
		}
		if err := db.Create(&row).Error; err != nil {
			return errs.Wrap(err, "insert reliability log")
		}
		return nil
	})
}

func (r *AuditLogRepository) ListByKey(ctx context.Context, ref reliability.EntityRef) ([]reliability.AuditLogEntry, error) {
	return r.ListByModel(ctx, ports.AuditLogFilter{Kind: ref.Kind, ID: ref.ID})
}

func (r *AuditLogRepository) ListByModel(ctx context.Context, filter ports.AuditLogFilter) ([]reliability.AuditLogEntry, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ReliabilityLog{}).Where("model = ?", string(filter.Kind))
	if id := strings.TrimSpace(filter.ID); id != "" {
		query = query.Where("foreign_key = ?", id)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if since := strings.TrimSpace(filter.Since); since != "" {
		query = query.Where("created >= ?", since)
	}
	if filter.NewestFirst {
		query = query.Order("created desc").Order("seq desc")
	} else {
		query = query.Order("created asc").Order("seq asc")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.ReliabilityLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query reliability logs")
	}
	return mapLogs(rows), nil
}

// SignificantChanges returns entries whose total moved by at least minDelta,
// newest first.
func (r *AuditLogRepository) SignificantChanges(ctx context.Context, kind reliability.ModelKind, minDelta float64, limit int) ([]reliability.AuditLogEntry, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.
		Where("model = ? AND from_total_score IS NOT NULL", string(kind)).
		Where("ABS(to_total_score - from_total_score) >= ?", minDelta).
		Order("created desc").
		Order("seq desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ReliabilityLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query significant changes")
	}
	return mapLogs(rows), nil
}

func (r *AuditLogRepository) ActivityBySource(ctx context.Context, kind reliability.ModelKind) ([]ports.SourceCount, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Source string
		Count  int64
	}
	if err := db.Model(&model.ReliabilityLog{}).
		Select("source, COUNT(*) AS count").
		Where("model = ?", string(kind)).
		Group("source").
		Order("count desc").
		Order("source asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query activity by source")
	}

	items := make([]ports.SourceCount, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.SourceCount{Source: row.Source, Count: row.Count})
	}
	return items, nil
}

func mapLogs(rows []model.ReliabilityLog) []reliability.AuditLogEntry {
	items := make([]reliability.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapLog(row))
	}
	return items
}

func mapLog(row model.ReliabilityLog) reliability.AuditLogEntry {
	var from *string
	if raw := strings.TrimSpace(string(row.FromFieldScoresJSON)); raw != "" && raw != jsonNull {
		from = &raw
	}
	return reliability.AuditLogEntry{
		ID:                  row.ID,
		Ref:                 reliability.EntityRef{Kind: reliability.ModelKind(row.Model), ID: row.ForeignKey},
		FromTotalScore:      row.FromTotalScore,
		ToTotalScore:        row.ToTotalScore,
		FromFieldScoresJSON: from,
		ToFieldScoresJSON:   string(row.ToFieldScoresJSON),
		Source:              row.Source,
		ActorUserID:         row.ActorUserID,
		ActorService:        row.ActorService,
		Message:             row.Message,
		Created:             row.Created,
		ChecksumSHA256:      row.ChecksumSHA256,
	}
}

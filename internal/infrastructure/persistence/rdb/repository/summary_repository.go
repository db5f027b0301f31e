package repository

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/persistence/rdb/model"
	"trustscore/internal/ports"
)

type SummaryRepository struct {
	db *gorm.DB
}

var (
	_ ports.SummaryRepository = (*SummaryRepository)(nil)
	_ ports.SummaryReader     = (*SummaryRepository)(nil)
)

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) FindByKey(ctx context.Context, ref reliability.EntityRef) (reliability.Summary, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return reliability.Summary{}, err
	}

	var row model.ReliabilitySummary
	if err := db.
		Where("model = ? AND foreign_key = ?", string(ref.Kind), ref.ID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reliability.Summary{}, ports.ErrSummaryNotFound
		}
		return reliability.Summary{}, errs.Wrap(err, "query reliability summary")
	}
	return mapSummary(row), nil
}

// Upsert keeps id and created of an existing row and replaces the rest.
func (r *SummaryRepository) Upsert(ctx context.Context, s reliability.Summary) (reliability.Summary, error) {
	var stored reliability.Summary
	err := inTx(r.db, ctx, func(db *gorm.DB) error {
		row := model.ReliabilitySummary{
			ID:                  s.ID,
			Model:               string(s.Ref.Kind),
			ForeignKey:          s.Ref.ID,
			TotalScore:          s.TotalScore,
			CompletenessPercent: s.CompletenessPercent,
			FieldScoresJSON:     datatypes.JSON(s.FieldScoresJSON),
			ScoringVersion:      s.ScoringVersion,
			LastSource:          s.LastSource,
			LastCalculated:      s.LastCalculated,
			UpdatedByUserID:     s.UpdatedByUserID,
			UpdatedByService:    s.UpdatedByService,
			Created:             s.Created,
			Modified:            s.Modified,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "model"}, {Name: "foreign_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_score",
				"completeness_percent",
				"field_scores_json",
				"scoring_version",
				"last_source",
				"last_calculated",
				"updated_by_user_id",
				"updated_by_service",
				"modified",
			}),
		}).Create(&row).Error; err != nil {
			return errs.Wrap(err, "upsert reliability summary")
		}

		var saved model.ReliabilitySummary
		if err := db.
			Where("model = ? AND foreign_key = ?", row.Model, row.ForeignKey).
			Take(&saved).Error; err != nil {
			return errs.Wrap(err, "reload reliability summary")
		}
		stored = mapSummary(saved)
		return nil
	})
	if err != nil {
		return reliability.Summary{}, err
	}
	return stored, nil
}

// LockKey takes a transaction-scoped advisory lock on Postgres. SQLite
// serializes writers on its own, so there it is a no-op.
func (r *SummaryRepository) LockKey(ctx context.Context, ref reliability.EntityRef) error {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return err
	}
	if !isPostgres(db) {
		return nil
	}
	if ports.TxFromContext(ctx) == nil {
		return errors.New("lock key requires a transaction")
	}
	if err := db.Exec("SELECT pg_advisory_xact_lock(?)", advisoryKey64(ref.LockKey())).Error; err != nil {
		return errs.Wrapf(err, "advisory lock %s", ref)
	}
	return nil
}

func advisoryKey64(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func (r *SummaryRepository) TopScoring(ctx context.Context, kind reliability.ModelKind, limit int, minScore float64) ([]reliability.Summary, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.
		Where("model = ? AND total_score >= ?", string(kind), minScore).
		Order("total_score desc").
		Order("foreign_key asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ReliabilitySummary
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query top scoring summaries")
	}
	return mapSummaries(rows), nil
}

// NeedingAttention returns rows below either threshold, lowest score first.
func (r *SummaryRepository) NeedingAttention(ctx context.Context, kind reliability.ModelKind, maxScore float64, maxCompleteness float64, limit int) ([]reliability.Summary, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	query := db.
		Where("model = ?", string(kind)).
		Where(db.Where("total_score < ?", maxScore).Or("completeness_percent < ?", maxCompleteness)).
		Order("total_score asc").
		Order("foreign_key asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ReliabilitySummary
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query summaries needing attention")
	}
	return mapSummaries(rows), nil
}

func (r *SummaryRepository) Stats(ctx context.Context, kind reliability.ModelKind) (ports.SummaryStats, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return ports.SummaryStats{}, err
	}

	var row struct {
		Count           int64
		AvgScore        float64
		MinScore        float64
		MaxScore        float64
		AvgCompleteness float64
	}
	if err := db.Model(&model.ReliabilitySummary{}).
		Select(strings.Join([]string{
			"COUNT(*) AS count",
			"COALESCE(AVG(total_score), 0) AS avg_score",
			"COALESCE(MIN(total_score), 0) AS min_score",
			"COALESCE(MAX(total_score), 0) AS max_score",
			"COALESCE(AVG(completeness_percent), 0) AS avg_completeness",
		}, ", ")).
		Where("model = ?", string(kind)).
		Scan(&row).Error; err != nil {
		return ports.SummaryStats{}, errs.Wrap(err, "query summary stats")
	}

	return ports.SummaryStats{
		Count:           row.Count,
		AvgScore:        row.AvgScore,
		MinScore:        row.MinScore,
		MaxScore:        row.MaxScore,
		AvgCompleteness: row.AvgCompleteness,
	}, nil
}

func (r *SummaryRepository) ScoringVersions(ctx context.Context, kind reliability.ModelKind) ([]ports.VersionCount, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ScoringVersion string
		Count          int64
	}
	if err := db.Model(&model.ReliabilitySummary{}).
		Select("scoring_version, COUNT(*) AS count").
		Where("model = ?", string(kind)).
		Group("scoring_version").
		Order("scoring_version asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query scoring versions")
	}

	items := make([]ports.VersionCount, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.VersionCount{ScoringVersion: row.ScoringVersion, Count: row.Count})
	}
	return items, nil
}

func mapSummaries(rows []model.ReliabilitySummary) []reliability.Summary {
	items := make([]reliability.Summary, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapSummary(row))
	}
	return items
}

func mapSummary(row model.ReliabilitySummary) reliability.Summary {
	return reliability.Summary{
		ID:                  row.ID,
		Ref:                 reliability.EntityRef{Kind: reliability.ModelKind(row.Model), ID: row.ForeignKey},
		TotalScore:          row.TotalScore,
		CompletenessPercent: row.CompletenessPercent,
		FieldScoresJSON:     string(row.FieldScoresJSON),
		ScoringVersion:      row.ScoringVersion,
		LastSource:          row.LastSource,
		LastCalculated:      row.LastCalculated,
		UpdatedByUserID:     row.UpdatedByUserID,
		UpdatedByService:    row.UpdatedByService,
		Created:             row.Created,
		Modified:            row.Modified,
	}
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/persistence/rdb/model"
	"trustscore/internal/ports"
)

type FieldScoreRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ ports.FieldScoreRepository = (*FieldScoreRepository)(nil)
	_ ports.FieldScoreReader     = (*FieldScoreRepository)(nil)
)

func NewFieldScoreRepository(db *gorm.DB) *FieldScoreRepository {
	return &FieldScoreRepository{db: db, now: time.Now}
}

func (r *FieldScoreRepository) DeleteAllByKey(ctx context.Context, ref reliability.EntityRef) error {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return err
	}
	if err := db.
		Where("model = ? AND foreign_key = ?", string(ref.Kind), ref.ID).
		Delete(&model.ReliabilityField{}).Error; err != nil {
		return errs.Wrap(err, "delete reliability fields")
	}
	return nil
}

func (r *FieldScoreRepository) InsertMany(ctx context.Context, ref reliability.EntityRef, scores []reliability.FieldScore) error {
	if len(scores) == 0 {
		return nil
	}
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return err
	}

	created := reliability.FormatTimestamp(r.now())
	rows := make([]model.ReliabilityField, 0, len(scores))
	for _, fs := range scores {
		rows = append(rows, model.ReliabilityField{
			Model:      string(ref.Kind),
			ForeignKey: ref.ID,
			Field:      fs.Field,
			Score:      fs.Score,
			Weight:     fs.Weight,
			MaxScore:   fs.MaxScore,
			Notes:      fs.Notes,
			Created:    created,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert reliability fields")
	}
	return nil
}

func (r *FieldScoreRepository) ListByKey(ctx context.Context, ref reliability.EntityRef) ([]reliability.FieldScore, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ReliabilityField
	if err := db.
		Where("model = ? AND foreign_key = ?", string(ref.Kind), ref.ID).
		Order("field asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query reliability fields")
	}

	items := make([]reliability.FieldScore, 0, len(rows))
	for _, row := range rows {
		items = append(items, reliability.FieldScore{
			Field:    row.Field,
			Score:    row.Score,
			Weight:   row.Weight,
			MaxScore: row.MaxScore,
			Notes:    row.Notes,
		})
	}
	return items, nil
}

func (r *FieldScoreRepository) FieldStats(ctx context.Context, kind reliability.ModelKind) ([]ports.FieldStat, error) {
	db, err := dbFromContext(r.db, ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Field     string
		Count     int64
		AvgScore  float64
		MinScore  float64
		MaxScore  float64
		AvgWeight float64
	}
	if err := db.Model(&model.ReliabilityField{}).
		Select("field, COUNT(*) AS count, AVG(score) AS avg_score, MIN(score) AS min_score, MAX(score) AS max_score, AVG(weight) AS avg_weight").
		Where("model = ?", string(kind)).
		Group("field").
		Order("field asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query field stats")
	}

	items := make([]ports.FieldStat, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.FieldStat{
			Field:     row.Field,
			Count:     row.Count,
			AvgScore:  row.AvgScore,
			MinScore:  row.MinScore,
			MaxScore:  row.MaxScore,
			AvgWeight: row.AvgWeight,
		})
	}
	return items, nil
}

package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trustscore/internal/bootstrap/config"
	"trustscore/internal/bootstrap/database"
	"trustscore/internal/bootstrap/logging"
	"trustscore/internal/errs"
	"trustscore/internal/infrastructure/persistence/rdb/model"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
}

func New(ctx context.Context, configFile string) (*App, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "loading application config", slog.String("config_file", configFile))

	cfg, err := config.Load(logCtx, configFile)
	if err != nil {
		return nil, errs.Wrap(err, "load config")
	}

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, errs.Wrap(err, "open database")
	}

	logging.Info(logCtx, "application bootstrap completed", slog.String("database_driver", cfg.Database.Driver))

	return &App{
		Config: cfg,
		DB:     db,
	}, nil
}

// InitSchema creates or migrates the reliability tables and the DB cache table.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := a.recordSchemaMeta(ctx); err != nil {
		return errs.Wrap(err, "record schema meta")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// SchemaVersion is bumped whenever model.All changes shape.
const SchemaVersion = "1"

func (a *App) recordSchemaMeta(ctx context.Context) error {
	entries := []model.SchemaMeta{{Key: "schema_version", Value: SchemaVersion}}

	domain, err := a.Config.Reliability.Domain()
	if err != nil {
		return err
	}
	for kind, m := range domain.Models {
		entries = append(entries, model.SchemaMeta{Key: "scoring_version." + string(kind), Value: m.ScoringVersion})
	}

	return a.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entries).Error
}

// SchemaMeta returns the recorded installation facts by key.
func (a *App) SchemaMeta(ctx context.Context) (map[string]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	var rows []model.SchemaMeta
	if err := a.DB.WithContext(ctx).Order("key asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query schema meta")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}

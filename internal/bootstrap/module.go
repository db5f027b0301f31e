package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"trustscore/internal/bootstrap/config"
	"trustscore/internal/bootstrap/database"
	"trustscore/internal/bootstrap/logging"
	"trustscore/internal/bootstrap/telemetry"
	domainreliability "trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
	cacheinfra "trustscore/internal/infrastructure/cache"
	lockinfra "trustscore/internal/infrastructure/lock"
	rdbrepo "trustscore/internal/infrastructure/persistence/rdb/repository"
	rdbuow "trustscore/internal/infrastructure/persistence/rdb/uow"
	"trustscore/internal/ports"
	"trustscore/internal/usecase/reliability"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(provideTelemetry),
	fx.Provide(provideRedis),
	fx.Provide(provideCache),
	fx.Provide(provideLocker),
	fx.Provide(
		rdbrepo.NewSummaryRepository,
		rdbrepo.NewFieldScoreRepository,
		rdbrepo.NewAuditLogRepository,
	),
	fx.Provide(
		fx.Annotate(
			rdbuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideReliabilityConfig),
	fx.Provide(provideReliabilityService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideTelemetry(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.Setup(ctx, cfg.Telemetry, nil)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			return provider.Shutdown(stopCtx)
		},
	})
	return provider, nil
}

// redisClient is nil unless a cache or lock backend needs Redis.
type redisClient struct {
	goredis.UniversalClient
}

func provideRedis(lc fx.Lifecycle, ctx context.Context, cfg config.Config) *redisClient {
	if !cfg.RedisRequired() {
		return &redisClient{}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.redis"))

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := client.Ping(startCtx).Err(); err != nil {
				return errs.Wrapf(err, "ping redis %s", cfg.Redis.Addr)
			}
			logging.Info(logCtx, "redis connected", slog.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return &redisClient{UniversalClient: client}
}

func provideCache(cfg config.Config, db *gorm.DB, rc *redisClient) (ports.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Backend)) {
	case "", "none":
		return nil, nil
	case "db":
		return cacheinfra.NewDBCache(db), nil
	case "redis":
		return cacheinfra.NewRedisCache(rc.UniversalClient, cfg.Cache.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}

func provideLocker(cfg config.Config, rc *redisClient) (ports.KeyLocker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Lock.Backend)) {
	case "", "local":
		return lockinfra.NewLocalLocker(), nil
	case "redis":
		return lockinfra.NewRedisLocker(rc.UniversalClient, cfg.Lock.Prefix, cfg.Lock.TTL, cfg.Lock.Wait), nil
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Lock.Backend)
	}
}

func provideReliabilityConfig(cfg config.Config) (domainreliability.Config, error) {
	return cfg.Reliability.Domain()
}

type serviceParams struct {
	fx.In

	Config    domainreliability.Config
	AppConfig config.Config
	Summaries *rdbrepo.SummaryRepository
	Fields    *rdbrepo.FieldScoreRepository
	Logs      *rdbrepo.AuditLogRepository
	UoW       ports.UnitOfWork
	Locker    ports.KeyLocker
	Cache     ports.Cache
	Telemetry *telemetry.Provider
}

func provideReliabilityService(p serviceParams) (*reliability.Service, error) {
	return reliability.NewService(p.Config, reliability.Deps{
		Summaries:     p.Summaries,
		Fields:        p.Fields,
		Logs:          p.Logs,
		UnitOfWork:    p.UoW,
		SummaryReader: p.Summaries,
		FieldReader:   p.Fields,
		LogReader:     p.Logs,
		Locker:        p.Locker,
		Cache:         p.Cache,
		CacheTTL:      p.AppConfig.Cache.TTL,
		Tracer:        p.Telemetry.Tracer("trustscore/usecase/reliability"),
	})
}

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"trustscore/internal/bootstrap/logging"
	"trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Lock        LockConfig        `mapstructure:"lock"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Reliability ReliabilityConfig `mapstructure:"reliability"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// CacheConfig selects the summary read cache: none, db or redis.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// LockConfig selects the per-entity key lock: local or redis.
type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Wait    time.Duration `mapstructure:"wait"`
	Prefix  string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c Config) RedisRequired() bool {
	return strings.EqualFold(c.Cache.Backend, "redis") || strings.EqualFold(c.Lock.Backend, "redis")
}

type TelemetryConfig struct {
	Exporter    string `mapstructure:"exporter"`
	ServiceName string `mapstructure:"service_name"`
}

type UIThresholdsConfig struct {
	Excellent float64 `mapstructure:"excellent"`
	Good      float64 `mapstructure:"good"`
}

type ImageValidationConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ModelSection overrides the built-in scoring configuration of one kind.
// Unset values keep the built-in default.
type ModelSection struct {
	Fields             map[string]float64            `mapstructure:"fields"`
	ScoringVersion     string                        `mapstructure:"scoring_version"`
	Normalize          *bool                         `mapstructure:"normalize"`
	CompletenessMethod string                        `mapstructure:"completeness_method"`
	Thresholds         map[string]map[string]float64 `mapstructure:"thresholds"`
	ValidCurrencies    []string                      `mapstructure:"valid_currencies"`
	ImageValidation    ImageValidationConfig         `mapstructure:"image_validation"`
}

type ReliabilityConfig struct {
	ValidSources     []string                `mapstructure:"valid_sources"`
	UIThresholds     UIThresholdsConfig      `mapstructure:"ui_thresholds"`
	BatchConcurrency int                     `mapstructure:"batch_concurrency"`
	Models           map[string]ModelSection `mapstructure:"models"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.RedisRequired() && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return Config{}, errors.New("redis.addr is required by the redis cache or lock backend")
	}
	if _, err := cfg.Reliability.Domain(); err != nil {
		return Config{}, errs.Wrap(err, "build reliability config")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.String("lock_backend", cfg.Lock.Backend),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "trustscore")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".trustscore/reliability.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.prefix", "trustscore:")
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.wait", 10*time.Second)
	v.SetDefault("lock.prefix", "trustscore:lock:")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.service_name", "trustscore")
	v.SetDefault("reliability.valid_sources", reliability.DefaultValidSources())
	v.SetDefault("reliability.ui_thresholds.excellent", reliability.DefaultUIThresholds().Excellent)
	v.SetDefault("reliability.ui_thresholds.good", reliability.DefaultUIThresholds().Good)
	v.SetDefault("reliability.batch_concurrency", 4)
}

// Domain builds the engine configuration. Products always exists; sections
// for other kinds enable them.
func (c ReliabilityConfig) Domain() (reliability.Config, error) {
	out := reliability.DefaultConfig()
	if len(c.ValidSources) > 0 {
		out.ValidSources = trimAll(c.ValidSources)
	}
	if c.UIThresholds.Excellent > 0 {
		out.UI.Excellent = c.UIThresholds.Excellent
	}
	if c.UIThresholds.Good > 0 {
		out.UI.Good = c.UIThresholds.Good
	}

	for name, section := range c.Models {
		kind, err := reliability.ParseModelKind(name)
		if err != nil {
			return reliability.Config{}, err
		}
		base, ok := out.Models[kind]
		if !ok {
			base = reliability.ModelConfig{
				ScoringVersion:     "v1.0",
				Normalize:          true,
				CompletenessMethod: reliability.CompletenessBinary,
			}
		}
		m, err := section.apply(base)
		if err != nil {
			return reliability.Config{}, fmt.Errorf("model %s: %w", kind, err)
		}
		out.Models[kind] = m
	}

	if err := out.Validate(); err != nil {
		return reliability.Config{}, err
	}
	return out, nil
}

func (s ModelSection) apply(m reliability.ModelConfig) (reliability.ModelConfig, error) {
	if len(s.Fields) > 0 {
		m.Fields = make(map[string]float64, len(s.Fields))
		for field, weight := range s.Fields {
			m.Fields[field] = weight
		}
	}
	if v := strings.TrimSpace(s.ScoringVersion); v != "" {
		m.ScoringVersion = v
	}
	if s.Normalize != nil {
		m.Normalize = *s.Normalize
	}
	if s.CompletenessMethod != "" {
		method, err := reliability.ParseCompletenessMethod(s.CompletenessMethod)
		if err != nil {
			return reliability.ModelConfig{}, err
		}
		m.CompletenessMethod = method
	}
	if len(s.Thresholds) > 0 {
		merged := make(map[string]reliability.FieldRules, len(m.Thresholds)+len(s.Thresholds))
		for field, rules := range m.Thresholds {
			merged[field] = rules
		}
		for field, rules := range s.Thresholds {
			next := reliability.FieldRules{}
			for k, v := range merged[field] {
				next[k] = v
			}
			for k, v := range rules {
				next[k] = v
			}
			merged[field] = next
		}
		m.Thresholds = merged
	}
	if len(s.ValidCurrencies) > 0 {
		m.ValidCurrencies = trimAll(s.ValidCurrencies)
	}
	if len(s.ImageValidation.AllowedExtensions) > 0 {
		m.AllowedImageExtensions = trimAll(s.ImageValidation.AllowedExtensions)
	}
	return m, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/httpserver"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/pkg/redis"
	"github.com/dmitrymomot/flagkit/pkg/requestid"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

const serviceName = "flagkit"

// Storage and cache backends selectable through STORE and CACHE.
const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendNone     = "none"
)

type appConfig struct {
	Env       string        `env:"APP_ENV" envDefault:"development"`
	LogLevel  string        `env:"LOG_LEVEL"`
	LogFormat string        `env:"LOG_FORMAT"`
	Store     string        `env:"STORE" envDefault:"memory"`
	Cache     string        `env:"CACHE" envDefault:"memory"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheHold time.Duration `env:"CACHE_HOLD" envDefault:"30s"`

	AuditBatchSize    int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	AuditBatchTimeout time.Duration `env:"AUDIT_BATCH_TIMEOUT" envDefault:"100ms"`

	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
}

func loadConfig(envFiles []string) (appConfig, error) {
	cfg, err := config.Load[appConfig](
		config.WithEnvFiles(envFiles...),
		config.WithOptionalEnvFiles(),
	)
	if err != nil {
		return cfg, err
	}

	switch cfg.Store {
	case backendMemory, backendPostgres:
	default:
		return cfg, fmt.Errorf("unknown STORE %q: must be %q or %q", cfg.Store, backendMemory, backendPostgres)
	}
	switch cfg.Cache {
	case backendMemory, backendRedis, backendNone:
	default:
		return cfg, fmt.Errorf("unknown CACHE %q: must be %q, %q or %q", cfg.Cache, backendMemory, backendRedis, backendNone)
	}
	return cfg, nil
}

func newLogger(cfg appConfig) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		opts = append(opts, logger.WithLevel(lvl))
	}
	if cfg.LogFormat != "" {
		f := logger.Format(cfg.LogFormat)
		if f != logger.FormatJSON && f != logger.FormatText {
			return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
		}
		opts = append(opts, logger.WithFormat(f))
	}
	return logger.New(opts...), nil
}

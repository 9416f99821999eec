package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/httpserver"
	"github.com/dmitrymomot/flagkit/pkg/metrics"
	"github.com/dmitrymomot/flagkit/pkg/pg"
	"github.com/dmitrymomot/flagkit/pkg/redis"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
	"github.com/dmitrymomot/flagkit/svc/flags"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

// auditStorage is what both audit backends provide.
type auditStorage interface {
	audit.BatchWriter
	audit.Querier
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    appConfig
	logger *slog.Logger

	pool    *pgxpool.Pool
	rdb     *goredis.Client
	metrics *metrics.Metrics

	store       flagstore.Store
	cache       flagcache.Cache
	tenantCache tenant.Cache
	auditReader *audit.Reader
	checks      map[string]httpserver.Check

	flags   *flags.Service
	tenants *tenants.Service

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:    cfg,
		logger: log,
		checks: make(map[string]httpserver.Check),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	var storage auditStorage
	switch cfg.Store {
	case backendPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		a.checks["postgres"] = pg.Healthcheck(pool)
		a.store = flagstore.NewPostgresStore(pool)
		storage = flagstore.NewPostgresAuditStorage(pool)
	default:
		log.Warn("using in-memory store, data is lost on exit")
		a.store = flagstore.NewMemoryStore()
		storage = audit.NewMemoryStorage()
	}

	writer, stopAudit := audit.NewAsyncWriter(storage, audit.AsyncOptions{
		BatchSize:    cfg.AuditBatchSize,
		BatchTimeout: cfg.AuditBatchTimeout,
	})
	a.closers = append(a.closers, stopAudit)
	auditLogger := audit.NewLogger(writer, audit.WithTenantIDExtractor(tenant.IDFromContext))
	a.auditReader = audit.NewReader(storage)

	cacheOpts := []flagcache.Option{
		flagcache.WithTTL(cfg.CacheTTL),
		flagcache.WithHold(cfg.CacheHold),
		flagcache.WithLogger(log),
		flagcache.WithMetrics(a.metrics),
	}
	switch cfg.Cache {
	case backendRedis:
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.checks["redis"] = redis.Healthcheck(rdb)
		a.cache = flagcache.NewRedis(rdb, cacheOpts...)
	case backendNone:
		a.cache = flagcache.NoOp{}
	default:
		a.cache = flagcache.NewMemory(cacheOpts...)
	}

	a.tenantCache = tenant.NewMemoryCache(1000, tenant.DefaultCacheTTL)

	a.flags = flags.NewService(a.store,
		flags.WithCache(a.cache),
		flags.WithAuditLogger(auditLogger),
		flags.WithLogger(log),
		flags.WithMetrics(a.metrics),
	)
	a.tenants = tenants.NewService(a.store,
		tenants.WithCache(a.tenantCache),
		tenants.WithFlagCache(a.cache),
		tenants.WithAuditLogger(auditLogger),
		tenants.WithLogger(log),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

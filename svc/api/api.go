package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/clientip"
	"github.com/dmitrymomot/flagkit/pkg/httpserver"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/metrics"
	"github.com/dmitrymomot/flagkit/pkg/ratelimiter"
	"github.com/dmitrymomot/flagkit/pkg/requestid"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flags"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

// ActorHeader names the caller recorded in audit entries.
const ActorHeader = "X-Actor-ID"

// DefaultHealthTimeout bounds all health probes together.
const DefaultHealthTimeout = 2 * time.Second

// API holds the HTTP handlers.
type API struct {
	flags       *flags.Service
	tenants     *tenants.Service
	auditReader *audit.Reader
	tenantCache tenant.Cache
	limiter     *ratelimiter.QuotaLimiter
	metrics     *metrics.Metrics
	checks      map[string]httpserver.Check
	logger      *slog.Logger
}

type Option func(*API)

// WithAuditReader enables GET /audit-logs.
func WithAuditReader(r *audit.Reader) Option {
	return func(a *API) { a.auditReader = r }
}

// WithTenantCache sets the cache of resolved tenants. Pass the same cache
// to the tenants service so updates evict it.
func WithTenantCache(c tenant.Cache) Option {
	return func(a *API) { a.tenantCache = c }
}

// WithQuotaLimiter enforces per-tenant request quotas.
func WithQuotaLimiter(l *ratelimiter.QuotaLimiter) Option {
	return func(a *API) { a.limiter = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithHealthCheck adds a named probe to GET /healthz.
func WithHealthCheck(name string, check httpserver.Check) Option {
	return func(a *API) { a.checks[name] = check }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// New creates the API. Panics on nil services.
func New(fs *flags.Service, ts *tenants.Service, opts ...Option) *API {
	if fs == nil || ts == nil {
		panic("api: services cannot be nil")
	}
	a := &API{
		flags:       fs,
		tenants:     ts,
		tenantCache: tenant.NewNoOpCache(),
		checks:      map[string]httpserver.Check{},
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("api"))
	return a
}

// Router builds the HTTP handler.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestid.Middleware(),
		clientip.Middleware(),
		a.recoverer,
		a.instrument,
		a.auditContext,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, errMethodNotAllowed)
	})

	r.Get("/healthz", httpserver.HealthHandler(a.logger, DefaultHealthTimeout, a.checks))
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", a.createTenant)
		r.Get("/", a.listTenants)
		r.Get("/{tenantID}", a.getTenant)
		r.Patch("/{tenantID}", a.updateTenant)
		r.Delete("/{tenantID}", a.deleteTenant)
	})

	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(
			tenant.NewHeaderResolver(tenant.DefaultHeader),
			a.tenants,
			tenant.WithCache(a.tenantCache),
			tenant.WithErrorHandler(a.writeError),
			tenant.WithLogger(a.logger),
		))
		if a.limiter != nil {
			r.Use(ratelimiter.Middleware(a.limiter,
				ratelimiter.WithErrorHandler(a.writeError),
				ratelimiter.WithRejectHook(func(*tenant.Tenant) { a.metrics.QuotaRejected() }),
				ratelimiter.WithLogger(a.logger),
			))
		}

		r.Route("/features", func(r chi.Router) {
			r.Post("/promote", a.promote)
			r.Post("/evaluate/{featureKey}", a.evaluate)

			r.Post("/", a.createFeature)
			r.Get("/", a.listFeatures)
			r.Get("/{featureID}", a.getFeature)
			r.Patch("/{featureID}", a.updateFeature)
			r.Delete("/{featureID}", a.removeFeature)

			r.Post("/{featureID}/flags", a.createFlag)
			r.Get("/{featureID}/flags", a.listFlags)
			r.Get("/{featureID}/flags/{env}", a.getFlag)
			r.Patch("/{featureID}/flags/{env}", a.updateFlag)
			r.Delete("/{featureID}/flags/{env}", a.removeFlag)
		})

		if a.auditReader != nil {
			r.Get("/audit-logs", a.listAuditLogs)
		}
	})

	return r
}

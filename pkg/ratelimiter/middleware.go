package ratelimiter

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

// Header names set by Middleware.
const (
	HeaderLimitBurst         = "X-RateLimit-Limit-Burst"
	HeaderRemainingBurst     = "X-RateLimit-Remaining-Burst"
	HeaderLimitSustained     = "X-RateLimit-Limit-Sustained"
	HeaderRemainingSustained = "X-RateLimit-Remaining-Sustained"
	HeaderReset              = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// ErrorHandler writes the response for a rejected or failed request. err is
// ErrQuotaExceeded for rejections.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	onReject     func(t *tenant.Tenant)
	logger       *slog.Logger
	now          func() time.Time
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) { c.errorHandler = h }
}

// WithRejectHook is called for every rejected request.
func WithRejectHook(fn func(t *tenant.Tenant)) MiddlewareOption {
	return func(c *middlewareConfig) { c.onReject = fn }
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) { c.logger = l }
}

// WithMiddlewareClock overrides the time source used for Retry-After.
func WithMiddlewareClock(now func() time.Time) MiddlewareOption {
	return func(c *middlewareConfig) { c.now = now }
}

// Middleware charges each request to the tenant in its context. Requests
// without a tenant pass through uncharged.
func Middleware(limiter *QuotaLimiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		errorHandler: defaultErrorHandler,
		logger:       logger.Discard(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := tenant.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), t)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "quota check failed", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}

			h := w.Header()
			h.Set(HeaderLimitBurst, strconv.Itoa(res.Burst.Limit))
			h.Set(HeaderRemainingBurst, strconv.Itoa(max(0, res.Burst.Remaining)))
			h.Set(HeaderLimitSustained, strconv.Itoa(res.Sustained.Limit))
			h.Set(HeaderRemainingSustained, strconv.Itoa(max(0, res.Sustained.Remaining)))

			denied := res.Denied()
			if denied == nil {
				h.Set(HeaderReset, strconv.FormatInt(res.Burst.ResetAt.Unix(), 10))
				next.ServeHTTP(w, r)
				return
			}

			h.Set(HeaderReset, strconv.FormatInt(denied.ResetAt.Unix(), 10))
			retry := int(math.Ceil(denied.RetryAfter(cfg.now()).Seconds()))
			h.Set(HeaderRetryAfter, strconv.Itoa(max(1, retry)))
			if cfg.onReject != nil {
				cfg.onReject(t)
			}
			cfg.errorHandler(w, r, ErrQuotaExceeded)
		})
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrQuotaExceeded) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

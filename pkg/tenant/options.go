package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	cache        Cache
	errorHandler ErrorHandler
	optional     bool
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

func WithCache(cache Cache) Option {
	return func(c *config) {
		c.cache = cache
	}
}

func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		c.errorHandler = handler
	}
}

// WithOptional lets requests without an identifier through without a tenant.
func WithOptional() Option {
	return func(c *config) {
		c.optional = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func defaultConfig() *config {
	return &config{
		cache:        NewMemoryCache(1000, DefaultCacheTTL),
		errorHandler: defaultErrorHandler,
		logger:       logger.Discard(),
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrNoTenantInContext):
		http.Error(w, "Tenant identifier required", http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

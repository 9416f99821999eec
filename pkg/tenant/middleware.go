package tenant

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Middleware resolves the request tenant and adds it to the context. Requests
// without an identifier are rejected with ErrNoTenantInContext unless
// WithOptional is set.
func Middleware(resolver Resolver, provider Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identifier, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, errors.Join(ErrInvalidIdentifier, err))
				return
			}
			if identifier == "" {
				if cfg.optional {
					next.ServeHTTP(w, r)
					return
				}
				cfg.errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			if cached, ok := cfg.cache.Get(ctx, identifier); ok {
				next.ServeHTTP(w, r.WithContext(WithTenant(ctx, cached)))
				return
			}

			t, err := provider.GetByIdentifier(ctx, identifier)
			if err != nil {
				if !errors.Is(err, ErrTenantNotFound) {
					cfg.logger.ErrorContext(ctx, "failed to load tenant", logger.Error(err))
				}
				cfg.errorHandler(w, r, err)
				return
			}

			cfg.cache.Set(ctx, identifier, t)
			next.ServeHTTP(w, r.WithContext(WithTenant(ctx, t)))
		})
	}
}

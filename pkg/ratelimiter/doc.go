// Package ratelimiter enforces per-tenant request quotas with token buckets.
//
// Every tenant owns two buckets: a burst bucket that holds QuotaBurst tokens
// and refills completely every second, and a sustained bucket that holds
// QuotaSustained tokens and refills completely every minute. A request costs
// one token from each. A denied request consumes nothing from the bucket that
// denied it.
//
// Middleware reads the tenant placed in the request context by
// tenant.Middleware, so it must be mounted after it:
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//	quotas := ratelimiter.NewQuotaLimiter(store)
//	r.Use(tenant.Middleware(resolver, provider), ratelimiter.Middleware(quotas))
//
// Responses carry X-RateLimit-Limit-Burst, X-RateLimit-Remaining-Burst,
// X-RateLimit-Limit-Sustained, X-RateLimit-Remaining-Sustained and
// X-RateLimit-Reset. Rejected requests get 429 with Retry-After.
package ratelimiter

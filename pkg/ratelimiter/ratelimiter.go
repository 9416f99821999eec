package ratelimiter

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
}

// Bucket implements a token bucket rate limiter with a fixed configuration.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket creates a new token bucket rate limiter.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

func (tb *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return tb.AllowN(ctx, key, 1)
}

func (tb *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	return consume(ctx, tb.store, key, n, tb.config)
}

// Status returns the current state without consuming tokens.
func (tb *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return consume(ctx, tb.store, key, 0, tb.config)
}

func (tb *Bucket) Reset(ctx context.Context, key string) error {
	return tb.store.Reset(ctx, key)
}

func consume(ctx context.Context, store Store, key string, n int, cfg Config) (*Result, error) {
	remaining, resetAt, err := store.ConsumeTokens(ctx, key, n, cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// QuotaResult is the outcome of charging one request to a tenant.
type QuotaResult struct {
	Burst     Result
	Sustained Result
}

// Allowed reports whether both quotas admitted the request.
func (q *QuotaResult) Allowed() bool {
	return q.Burst.Allowed() && q.Sustained.Allowed()
}

// Denied returns the result that rejected the request, preferring the one
// that resets last.
func (q *QuotaResult) Denied() *Result {
	switch {
	case !q.Sustained.Allowed():
		return &q.Sustained
	case !q.Burst.Allowed():
		return &q.Burst
	}
	return nil
}

// QuotaLimiter charges requests against the burst and sustained quotas of
// a tenant. Limits are read from the tenant on every call, so quota changes
// apply as soon as the tenant is reloaded.
type QuotaLimiter struct {
	store Store
}

func NewQuotaLimiter(store Store) *QuotaLimiter {
	return &QuotaLimiter{store: store}
}

// Allow charges one request to t. The sustained bucket is only charged when
// the burst bucket admits the request.
func (l *QuotaLimiter) Allow(ctx context.Context, t *tenant.Tenant) (*QuotaResult, error) {
	burstCfg, sustainedCfg := Burst(t.QuotaBurst), Sustained(t.QuotaSustained)
	if err := burstCfg.validate(); err != nil {
		return nil, err
	}
	if err := sustainedCfg.validate(); err != nil {
		return nil, err
	}

	id := t.ID.String()
	burst, err := consume(ctx, l.store, "burst:"+id, 1, burstCfg)
	if err != nil {
		return nil, err
	}

	n := 1
	if !burst.Allowed() {
		n = 0
	}
	sustained, err := consume(ctx, l.store, "sustained:"+id, n, sustainedCfg)
	if err != nil {
		return nil, err
	}
	return &QuotaResult{Burst: *burst, Sustained: *sustained}, nil
}

// Reset clears both buckets of a tenant.
func (l *QuotaLimiter) Reset(ctx context.Context, t *tenant.Tenant) error {
	id := t.ID.String()
	if err := l.store.Reset(ctx, "burst:"+id); err != nil {
		return err
	}
	return l.store.Reset(ctx, "sustained:"+id)
}

package tenant

import (
	"context"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/cache"
)

// Cache stores resolved tenants by identifier.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, tenant *Tenant)
	// Evict drops every entry that refers to t, under any identifier.
	Evict(ctx context.Context, t *Tenant)
}

// DefaultCacheTTL bounds how long quota changes take to reach request
// handling when an update bypasses Evict.
const DefaultCacheTTL = time.Minute

type memoryCache struct {
	items *cache.Cache[string, *Tenant]
}

// NewMemoryCache creates an in-process cache. Entries are copies, so
// callers may not mutate tenants through it.
func NewMemoryCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &memoryCache{items: cache.New[string, *Tenant](size, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	t, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

func (c *memoryCache) Set(_ context.Context, key string, t *Tenant) {
	cp := *t
	c.items.Set(key, &cp)
}

func (c *memoryCache) Evict(_ context.Context, t *Tenant) {
	c.items.RemoveFunc(func(key string) bool {
		return key == t.ID.String() || key == t.Slug
	})
}

type noOpCache struct{}

// NewNoOpCache returns a cache that stores nothing.
func NewNoOpCache() Cache { return noOpCache{} }

func (noOpCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }
func (noOpCache) Set(context.Context, string, *Tenant)        {}
func (noOpCache) Evict(context.Context, *Tenant)              {}

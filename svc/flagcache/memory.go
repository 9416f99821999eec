package flagcache

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/cache"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// Memory caches entries in process memory.
type Memory struct {
	opts     *options
	flags    *cache.Cache[string, flagEntry]
	features *cache.Cache[string, *FeaturePage]
}

var _ Cache = (*Memory)(nil)

func NewMemory(opts ...Option) *Memory {
	o := newOptions(opts)
	return &Memory{
		opts:     o,
		flags:    cache.New(o.capacity, o.ttl, cache.WithClock[string, flagEntry](o.now)),
		features: cache.New(o.capacity, o.ttl, cache.WithClock[string, *FeaturePage](o.now)),
	}
}

func (m *Memory) GetFlag(_ context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, bool) {
	e, ok := m.flags.Get(FlagKey(tenantID, featureID, env))
	ok = ok && e.Flag != nil
	m.opts.metrics.CacheLookup("flag", ok)
	if !ok {
		return nil, false
	}
	return e.Flag.Clone(), true
}

func (m *Memory) SetFlag(_ context.Context, flag *feature.Flag) {
	m.flags.SetIf(FlagKey(flag.TenantID, flag.FeatureID, flag.Env), flagEntry{Flag: flag.Clone()},
		func(_ flagEntry, found bool) bool { return !found })
}

func (m *Memory) PutFlag(_ context.Context, flag *feature.Flag) {
	m.flags.SetIf(FlagKey(flag.TenantID, flag.FeatureID, flag.Env), flagEntry{Flag: flag.Clone()},
		func(current flagEntry, found bool) bool { return !found || current.accepts(flag) })
}

func (m *Memory) DeleteFlag(_ context.Context, flag *feature.Flag) {
	m.flags.Set(FlagKey(flag.TenantID, flag.FeatureID, flag.Env), flagEntry{Deleted: flag.ID})
}

func (m *Memory) InvalidateFlag(_ context.Context, tenantID, featureID uuid.UUID, env feature.Environment) {
	m.flags.Set(FlagKey(tenantID, featureID, env), flagEntry{Sealed: true})
}

func (m *Memory) GetFeatures(_ context.Context, tenantID uuid.UUID) (*FeaturePage, bool) {
	p, ok := m.features.Get(FeaturesKey(tenantID))
	ok = ok && p != nil
	m.opts.metrics.CacheLookup("features", ok)
	if !ok {
		return nil, false
	}
	return clonePage(p), true
}

func (m *Memory) SetFeatures(_ context.Context, tenantID uuid.UUID, page *FeaturePage) {
	m.features.SetIf(FeaturesKey(tenantID), clonePage(page),
		func(current *FeaturePage, found bool) bool { return !found || current != nil })
}

// InvalidateFeatures holds the key with a nil page.
func (m *Memory) InvalidateFeatures(_ context.Context, tenantID uuid.UUID) {
	key := FeaturesKey(tenantID)
	if m.opts.hold <= 0 {
		m.features.Remove(key)
		return
	}
	m.features.SetWithTTL(key, nil, m.opts.hold)
}

// Clear drops every entry.
func (m *Memory) Clear() {
	m.flags.Clear()
	m.features.Clear()
}

// Len returns the number of flag and feature-list entries, tombstones and
// held keys included.
func (m *Memory) Len() int {
	return m.flags.Len() + m.features.Len()
}

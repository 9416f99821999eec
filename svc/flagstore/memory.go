package flagstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

type flagKey struct {
	featureID uuid.UUID
	env       feature.Environment
}

// MemoryStore is a Store kept in process memory. Values passed in and
// returned are copies.
type MemoryStore struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]*tenant.Tenant
	features map[uuid.UUID]*feature.Feature
	flags    map[flagKey]*feature.Flag
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[uuid.UUID]*tenant.Tenant),
		features: make(map[uuid.UUID]*feature.Feature),
		flags:    make(map[flagKey]*feature.Flag),
	}
}

func (s *MemoryStore) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; ok {
		return ErrDuplicateKey
	}
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ErrDuplicateKey
		}
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *MemoryStore) FindTenant(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) FindTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTenants(_ context.Context) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *tenant.Tenant) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

func (s *MemoryStore) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tenants[t.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name = t.Name
	stored.QuotaBurst = t.QuotaBurst
	stored.QuotaSustained = t.QuotaSustained
	stored.UpdatedAt = t.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteTenant(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return ErrNotFound
	}
	delete(s.tenants, id)
	for fid, f := range s.features {
		if f.TenantID == id {
			delete(s.features, fid)
		}
	}
	for k, fl := range s.flags {
		if fl.TenantID == id {
			delete(s.flags, k)
		}
	}
	return nil
}

func (s *MemoryStore) CreateFeature(_ context.Context, f *feature.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[f.TenantID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.features[f.ID]; ok {
		return ErrDuplicateKey
	}
	for _, existing := range s.features {
		if existing.TenantID == f.TenantID && existing.Key == f.Key {
			return ErrDuplicateKey
		}
	}
	cp := *f
	s.features[f.ID] = &cp
	return nil
}

func (s *MemoryStore) FindFeature(_ context.Context, tenantID, id uuid.UUID) (*feature.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.features[id]
	if !ok || f.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) FindFeatureByKey(_ context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f := s.featureByKey(tenantID, key); f != nil {
		cp := *f
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) featureByKey(tenantID uuid.UUID, key string) *feature.Feature {
	for _, f := range s.features {
		if f.TenantID == tenantID && f.Key == key {
			return f
		}
	}
	return nil
}

func (s *MemoryStore) UpdateFeature(_ context.Context, f *feature.Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.features[f.ID]
	if !ok || stored.TenantID != f.TenantID {
		return ErrNotFound
	}
	stored.Name = f.Name
	stored.Description = f.Description
	stored.UpdatedAt = f.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteFeature(_ context.Context, tenantID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.features[id]
	if !ok || f.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.features, id)
	for _, env := range feature.Environments {
		delete(s.flags, flagKey{featureID: id, env: env})
	}
	return nil
}

func (s *MemoryStore) ListFeatures(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*feature.Feature, int, error) {
	opts = opts.Normalize()
	search := strings.ToLower(opts.Search)

	s.mu.RLock()
	var matched []*feature.Feature
	for _, f := range s.features {
		if f.TenantID != tenantID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(f.Key), search) &&
			!strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		cp := *f
		matched = append(matched, &cp)
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *feature.Feature) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	total := len(matched)
	start := min(opts.Offset(), total)
	end := min(start+opts.Limit, total)
	return matched[start:end], total, nil
}

func (s *MemoryStore) CreateFlag(_ context.Context, f *feature.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.features[f.FeatureID]
	if !ok || parent.TenantID != f.TenantID {
		return ErrNotFound
	}
	k := flagKey{featureID: f.FeatureID, env: f.Env}
	if _, ok := s.flags[k]; ok {
		return ErrDuplicateKey
	}
	f.Version = 1
	s.flags[k] = f.Clone()
	return nil
}

func (s *MemoryStore) FindFlag(_ context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fl, ok := s.flags[flagKey{featureID: featureID, env: env}]
	if !ok || fl.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return fl.Clone(), nil
}

func (s *MemoryStore) UpdateFlag(_ context.Context, f *feature.Flag, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.flags[flagKey{featureID: f.FeatureID, env: f.Env}]
	if !ok || stored.TenantID != f.TenantID {
		return ErrNotFound
	}
	if expectedVersion > 0 && stored.Version != expectedVersion {
		return ErrVersionMismatch
	}

	stored.Enabled = f.Enabled
	stored.StrategyType = f.StrategyType
	stored.StrategyConfig = feature.CloneConfig(f.StrategyConfig)
	stored.UpdatedAt = f.UpdatedAt
	stored.Version++

	f.Version = stored.Version
	f.ID = stored.ID
	f.CreatedAt = stored.CreatedAt
	return nil
}

func (s *MemoryStore) DeleteFlag(_ context.Context, tenantID, featureID uuid.UUID, env feature.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := flagKey{featureID: featureID, env: env}
	fl, ok := s.flags[k]
	if !ok || fl.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.flags, k)
	return nil
}

func (s *MemoryStore) ListFlagsForFeature(_ context.Context, tenantID, featureID uuid.UUID) ([]*feature.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.flagsFor(tenantID, featureID, feature.Environments), nil
}

func (s *MemoryStore) flagsFor(tenantID, featureID uuid.UUID, envs []feature.Environment) []*feature.Flag {
	out := []*feature.Flag{}
	for _, env := range feature.Environments {
		if !slices.Contains(envs, env) {
			continue
		}
		if fl, ok := s.flags[flagKey{featureID: featureID, env: env}]; ok && fl.TenantID == tenantID {
			out = append(out, fl.Clone())
		}
	}
	return out
}

func (s *MemoryStore) ListFeaturesWithFlags(_ context.Context, tenantID uuid.UUID, envs []feature.Environment, keys []string) ([]*feature.FeatureWithFlags, error) {
	if len(envs) == 0 {
		envs = feature.Environments
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*feature.FeatureWithFlags
	for _, f := range s.features {
		if f.TenantID != tenantID {
			continue
		}
		if len(keys) > 0 && !slices.Contains(keys, f.Key) {
			continue
		}
		out = append(out, &feature.FeatureWithFlags{
			Feature: *f,
			Flags:   s.flagsFor(tenantID, f.ID, envs),
		})
	}
	slices.SortFunc(out, func(a, b *feature.FeatureWithFlags) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

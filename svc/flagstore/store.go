package flagstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
)

// Paging defaults for ListFeatures.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions selects one page of features. Search matches key or name,
// case-insensitively.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// Normalize applies paging defaults: page 1, limit 20, limit at most 100.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	o.Limit = min(o.Limit, MaxPageSize)
	return o
}

// Offset returns the number of features to skip.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// IsFirstPage reports whether o is the default listing, the only one that
// is cached.
func (o ListOptions) IsFirstPage() bool {
	n := o.Normalize()
	return n.Page == 1 && n.Limit == DefaultPageSize && n.Search == ""
}

// TenantStore persists tenants. Deleting a tenant deletes its features and
// flags.
type TenantStore interface {
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	FindTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	FindTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	// ListTenants returns all tenants, newest first.
	ListTenants(ctx context.Context) ([]*tenant.Tenant, error)
	// UpdateTenant stores name, quotas and UpdatedAt.
	UpdateTenant(ctx context.Context, t *tenant.Tenant) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
}

// FeatureStore persists features and their per-environment flags.
type FeatureStore interface {
	// CreateFeature returns ErrDuplicateKey when the key is taken in the
	// tenant and ErrNotFound when the tenant does not exist.
	CreateFeature(ctx context.Context, f *feature.Feature) error
	FindFeature(ctx context.Context, tenantID, id uuid.UUID) (*feature.Feature, error)
	FindFeatureByKey(ctx context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error)
	// UpdateFeature stores name, description and UpdatedAt. The key never
	// changes.
	UpdateFeature(ctx context.Context, f *feature.Feature) error
	// DeleteFeature removes the feature and all of its flags.
	DeleteFeature(ctx context.Context, tenantID, id uuid.UUID) error
	// ListFeatures returns one page, newest first, and the total number of
	// matches.
	ListFeatures(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*feature.Feature, int, error)

	// CreateFlag stores f with version 1. It returns ErrDuplicateKey when
	// the feature already has a flag for f.Env and ErrNotFound when the
	// feature does not exist.
	CreateFlag(ctx context.Context, f *feature.Flag) error
	FindFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error)
	// UpdateFlag stores enabled, strategy and UpdatedAt, and sets f.Version
	// to the stored version plus one. When expectedVersion is positive and
	// differs from the stored version nothing is written and
	// ErrVersionMismatch is returned.
	UpdateFlag(ctx context.Context, f *feature.Flag, expectedVersion int) error
	DeleteFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) error
	// ListFlagsForFeature returns the flags of a feature ordered DEV,
	// STAGING, PROD.
	ListFlagsForFeature(ctx context.Context, tenantID, featureID uuid.UUID) ([]*feature.Flag, error)

	// ListFeaturesWithFlags returns the features of a tenant ordered by key,
	// restricted to keys when non-empty, each with its flags for envs. An
	// empty envs selects every environment.
	ListFeaturesWithFlags(ctx context.Context, tenantID uuid.UUID, envs []feature.Environment, keys []string) ([]*feature.FeatureWithFlags, error)
}

// Store is the full persistence contract.
type Store interface {
	TenantStore
	FeatureStore
}

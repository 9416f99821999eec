package tenant

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Default and allowed request quotas.
const (
	DefaultQuotaBurst     = 100
	MinQuotaBurst         = 10
	MaxQuotaBurst         = 10000
	DefaultQuotaSustained = 1000
	MinQuotaSustained     = 100
	MaxQuotaSustained     = 100000
)

// SlugPattern is the allowed shape of a tenant slug.
var SlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Tenant is an isolated customer of the service. QuotaBurst is the number of
// requests allowed per second and QuotaSustained the number per minute.
type Tenant struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	QuotaBurst     int       `json:"quotaBurst"`
	QuotaSustained int       `json:"quotaSustained"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Provider loads tenant information from a data source.
type Provider interface {
	// GetByIdentifier retrieves a tenant by UUID or slug.
	// Returns ErrTenantNotFound if no tenant matches the identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, identifier string) (*Tenant, error)

func (f ProviderFunc) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	return f(ctx, identifier)
}

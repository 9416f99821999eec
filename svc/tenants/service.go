package tenants

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

// AuditLogger records changes. *audit.Logger implements it.
type AuditLogger interface {
	Log(ctx context.Context, action audit.Action, opts ...audit.EntryOption) error
}

type Service struct {
	store     flagstore.TenantStore
	cache     tenant.Cache
	flagCache flagcache.Cache
	audit     AuditLogger
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithCache sets the resolver cache evicted on update and delete.
func WithCache(c tenant.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithFlagCache sets the flag cache whose tenant entries are dropped when a
// tenant is deleted.
func WithFlagCache(c flagcache.Cache) Option {
	return func(s *Service) { s.flagCache = c }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service. Panics on nil store.
func NewService(store flagstore.TenantStore, opts ...Option) *Service {
	if store == nil {
		panic("tenants: store cannot be nil")
	}
	s := &Service{
		store:     store,
		cache:     tenant.NewNoOpCache(),
		flagCache: flagcache.NoOp{},
		logger:    logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("tenants"))
	return s
}

// Create creates a tenant. A taken slug yields ErrConflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (*tenant.Tenant, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	now := s.now().UTC()
	t := &tenant.Tenant{
		ID:             uuid.New(),
		Name:           in.Name,
		Slug:           in.Slug,
		QuotaBurst:     tenant.DefaultQuotaBurst,
		QuotaSustained: tenant.DefaultQuotaSustained,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.QuotaBurst != nil {
		t.QuotaBurst = *in.QuotaBurst
	}
	if in.QuotaSustained != nil {
		t.QuotaSustained = *in.QuotaSustained
	}

	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, storeError(err)
	}
	s.record(ctx, audit.ActionCreate, t.ID, nil, t)

	s.logger.InfoContext(ctx, "tenant created", logger.TenantID(t.ID), slog.String("slug", t.Slug))
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, err := s.store.FindTenant(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return t, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := s.store.FindTenantBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, storeError(err)
	}
	return t, nil
}

// List returns every tenant, newest first.
func (s *Service) List(ctx context.Context) ([]*tenant.Tenant, error) {
	list, err := s.store.ListTenants(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if list == nil {
		list = []*tenant.Tenant{}
	}
	return list, nil
}

// Update changes the name or quotas of a tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*tenant.Tenant, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := in.Validate(); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}

	t, err := s.store.FindTenant(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	before := *t

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.QuotaBurst != nil {
		t.QuotaBurst = *in.QuotaBurst
	}
	if in.QuotaSustained != nil {
		t.QuotaSustained = *in.QuotaSustained
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, storeError(err)
	}
	s.record(ctx, audit.ActionUpdate, t.ID, before, t)
	s.cache.Evict(ctx, t)
	return t, nil
}

// Delete removes a tenant with all of its features and flags.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.store.FindTenant(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return storeError(err)
	}
	s.record(ctx, audit.ActionDelete, t.ID, t, nil)
	s.cache.Evict(ctx, t)
	s.flagCache.InvalidateFeatures(ctx, t.ID)

	s.logger.InfoContext(ctx, "tenant deleted", logger.TenantID(t.ID), slog.String("slug", t.Slug))
	return nil
}

// GetByIdentifier implements tenant.Provider. Identifiers that parse as a
// UUID are looked up by ID, anything else by slug.
func (s *Service) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, tenant.ErrInvalidIdentifier
	}

	var (
		t   *tenant.Tenant
		err error
	)
	if id, perr := uuid.Parse(identifier); perr == nil {
		t, err = s.Get(ctx, id)
	} else {
		t, err = s.GetBySlug(ctx, identifier)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, errors.Join(tenant.ErrTenantNotFound, err)
	}
	return t, err
}

func (s *Service) record(ctx context.Context, action audit.Action, id uuid.UUID, before, after any) {
	if s.audit == nil {
		return
	}
	opts := []audit.EntryOption{audit.WithTenant(id), audit.WithEntity(audit.EntityTenant, id)}
	if before != nil {
		opts = append(opts, audit.WithBefore(before))
	}
	if after != nil {
		opts = append(opts, audit.WithAfter(after))
	}
	if err := s.audit.Log(ctx, action, opts...); err != nil {
		s.logger.ErrorContext(ctx, "failed to write audit entry", logger.TenantID(id), logger.Error(err))
	}
}

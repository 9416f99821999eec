package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/tenant"
	"github.com/dmitrymomot/flagkit/svc/flags"
	"github.com/dmitrymomot/flagkit/svc/tenants"
)

// TenantService is the subset of *tenants.Service the seeder needs.
type TenantService interface {
	GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	Create(ctx context.Context, in tenants.CreateInput) (*tenant.Tenant, error)
}

// FlagService is the subset of *flags.Service the seeder needs.
type FlagService interface {
	GetFeatureByKey(ctx context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error)
	CreateFeature(ctx context.Context, tenantID uuid.UUID, in flags.CreateFeatureInput) (*feature.Feature, error)
	GetFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error)
	CreateFlag(ctx context.Context, tenantID, featureID uuid.UUID, in flags.CreateFlagInput) (*feature.Flag, error)
}

// Report counts what a run created and what already existed.
type Report struct {
	TenantsCreated  int `json:"tenantsCreated"`
	FeaturesCreated int `json:"featuresCreated"`
	FlagsCreated    int `json:"flagsCreated"`
	Existing        int `json:"existing"`
}

type Seeder struct {
	tenants TenantService
	flags   FlagService
	logger  *slog.Logger
}

type Option func(*Seeder)

func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

func New(ts TenantService, fs FlagService, opts ...Option) *Seeder {
	s := &Seeder{tenants: ts, flags: fs, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("seed"))
	return s
}

// Apply creates everything in doc that does not exist yet. It stops at the
// first error and returns the report so far.
func (s *Seeder) Apply(ctx context.Context, doc *Document) (Report, error) {
	var report Report
	for _, td := range doc.Tenants {
		tn, created, err := s.ensureTenant(ctx, td)
		if err != nil {
			return report, fmt.Errorf("tenant %q: %w", td.Slug, err)
		}
		report.count(created, &report.TenantsCreated)

		for _, fd := range td.Features {
			ft, created, err := s.ensureFeature(ctx, tn.ID, fd)
			if err != nil {
				return report, fmt.Errorf("tenant %q feature %q: %w", td.Slug, fd.Key, err)
			}
			report.count(created, &report.FeaturesCreated)

			for _, fl := range fd.Flags {
				created, err := s.ensureFlag(ctx, tn.ID, ft.ID, fl)
				if err != nil {
					return report, fmt.Errorf("tenant %q feature %q env %s: %w", td.Slug, fd.Key, fl.Env, err)
				}
				report.count(created, &report.FlagsCreated)
			}
		}
	}

	s.logger.InfoContext(ctx, "seed applied",
		slog.Int("tenants_created", report.TenantsCreated),
		slog.Int("features_created", report.FeaturesCreated),
		slog.Int("flags_created", report.FlagsCreated),
		slog.Int("existing", report.Existing))
	return report, nil
}

func (r *Report) count(created bool, counter *int) {
	if created {
		*counter++
		return
	}
	r.Existing++
}

func (s *Seeder) ensureTenant(ctx context.Context, td Tenant) (*tenant.Tenant, bool, error) {
	existing, err := s.tenants.GetBySlug(ctx, td.Slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, tenants.ErrNotFound) {
		return nil, false, err
	}
	tn, err := s.tenants.Create(ctx, tenants.CreateInput{
		Name:           td.Name,
		Slug:           td.Slug,
		QuotaBurst:     td.QuotaBurst,
		QuotaSustained: td.QuotaSustained,
	})
	if err != nil {
		return nil, false, err
	}
	return tn, true, nil
}

func (s *Seeder) ensureFeature(ctx context.Context, tenantID uuid.UUID, fd Feature) (*feature.Feature, bool, error) {
	existing, err := s.flags.GetFeatureByKey(ctx, tenantID, fd.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, flags.ErrNotFound) {
		return nil, false, err
	}
	ft, err := s.flags.CreateFeature(ctx, tenantID, flags.CreateFeatureInput{
		Key:         fd.Key,
		Name:        fd.Name,
		Description: fd.Description,
	})
	if err != nil {
		return nil, false, err
	}
	return ft, true, nil
}

func (s *Seeder) ensureFlag(ctx context.Context, tenantID, featureID uuid.UUID, fd Flag) (bool, error) {
	_, err := s.flags.GetFlag(ctx, tenantID, featureID, fd.Env)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, flags.ErrNotFound) {
		return false, err
	}
	raw, err := fd.ConfigJSON()
	if err != nil {
		return false, err
	}
	_, err = s.flags.CreateFlag(ctx, tenantID, featureID, flags.CreateFlagInput{
		Env:            fd.Env,
		Enabled:        fd.Enabled,
		StrategyType:   fd.StrategyType,
		StrategyConfig: raw,
	})
	return err == nil, err
}

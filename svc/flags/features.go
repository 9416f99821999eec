package flags

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
)

// CreateFeature creates a feature in the tenant. A taken key yields
// ErrConflict.
func (s *Service) CreateFeature(ctx context.Context, tenantID uuid.UUID, in CreateFeatureInput) (*feature.Feature, error) {
	in.Key = strings.TrimSpace(in.Key)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	now := s.timestamp()
	f := &feature.Feature{
		ID:          s.newID(),
		TenantID:    tenantID,
		Key:         in.Key,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFeature(ctx, f); err != nil {
		return nil, storeError(err)
	}

	s.record(ctx, audit.ActionCreate, tenantID, audit.EntityFeature, f.ID, nil, f)
	s.cache.InvalidateFeatures(ctx, tenantID)

	s.logger.InfoContext(ctx, "feature created",
		logger.TenantID(tenantID), logger.FeatureKey(f.Key), logger.FeatureID(f.ID))
	return f, nil
}

// UpdateFeature changes the name and description of a feature.
func (s *Service) UpdateFeature(ctx context.Context, tenantID, id uuid.UUID, in UpdateFeatureInput) (*feature.Feature, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.store.FindFeature(ctx, tenantID, id)
	if err != nil {
		return nil, storeError(err)
	}
	before := *existing

	if in.Name != nil {
		existing.Name = *in.Name
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	existing.UpdatedAt = s.timestamp()

	if err := s.store.UpdateFeature(ctx, existing); err != nil {
		return nil, storeError(err)
	}

	s.record(ctx, audit.ActionUpdate, tenantID, audit.EntityFeature, id, before, existing)
	s.cache.InvalidateFeatures(ctx, tenantID)
	return existing, nil
}

// RemoveFeature deletes a feature with all of its flags.
func (s *Service) RemoveFeature(ctx context.Context, tenantID, id uuid.UUID) error {
	existing, err := s.store.FindFeature(ctx, tenantID, id)
	if err != nil {
		return storeError(err)
	}
	if err := s.store.DeleteFeature(ctx, tenantID, id); err != nil {
		return storeError(err)
	}

	s.record(ctx, audit.ActionDelete, tenantID, audit.EntityFeature, id, existing, nil)
	s.cache.InvalidateFeatures(ctx, tenantID)
	for _, env := range feature.Environments {
		s.cache.InvalidateFlag(ctx, tenantID, id, env)
	}

	s.logger.InfoContext(ctx, "feature removed",
		logger.TenantID(tenantID), logger.FeatureKey(existing.Key), logger.FeatureID(id))
	return nil
}

func (s *Service) GetFeature(ctx context.Context, tenantID, id uuid.UUID) (*feature.Feature, error) {
	f, err := s.store.FindFeature(ctx, tenantID, id)
	if err != nil {
		return nil, storeError(err)
	}
	return f, nil
}

func (s *Service) GetFeatureByKey(ctx context.Context, tenantID uuid.UUID, key string) (*feature.Feature, error) {
	f, err := s.store.FindFeatureByKey(ctx, tenantID, key)
	if err != nil {
		return nil, storeError(err)
	}
	return f, nil
}

// ListFeatures returns one page of features, newest first. The first page
// without a search term is served from the cache.
func (s *Service) ListFeatures(ctx context.Context, tenantID uuid.UUID, in ListFeaturesInput) (*FeaturePage, error) {
	opts := in.Normalize()
	cacheable := opts.IsFirstPage()

	if cacheable {
		if cached, ok := s.cache.GetFeatures(ctx, tenantID); ok {
			return &FeaturePage{Features: cached.Features, Total: cached.Total, Page: opts.Page, Limit: opts.Limit}, nil
		}
	}

	features, total, err := s.store.ListFeatures(ctx, tenantID, opts)
	if err != nil {
		return nil, storeError(err)
	}
	if features == nil {
		features = []*feature.Feature{}
	}
	if cacheable {
		s.cache.SetFeatures(ctx, tenantID, &flagcache.FeaturePage{Features: features, Total: total})
	}
	return &FeaturePage{Features: features, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

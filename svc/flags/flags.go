package flags

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// CreateFlag configures a feature for one environment. The feature must
// exist and must not have a flag for that environment yet.
func (s *Service) CreateFlag(ctx context.Context, tenantID, featureID uuid.UUID, in CreateFlagInput) (*feature.Flag, error) {
	env, err := parseEnvironment("env", in.Env)
	if err != nil {
		return nil, err
	}
	st, err := parseStrategyType("strategyType", in.StrategyType)
	if err != nil {
		return nil, err
	}
	cfg, err := feature.ParseConfig(st, in.StrategyConfig)
	if err != nil {
		return nil, validationError(err)
	}

	parent, err := s.store.FindFeature(ctx, tenantID, featureID)
	if err != nil {
		return nil, storeError(err)
	}

	now := s.timestamp()
	fl := &feature.Flag{
		ID:             s.newID(),
		TenantID:       tenantID,
		FeatureID:      featureID,
		Env:            env,
		Enabled:        in.Enabled,
		StrategyType:   st,
		StrategyConfig: cfg,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateFlag(ctx, fl); err != nil {
		return nil, storeError(err)
	}

	s.record(ctx, audit.ActionCreate, tenantID, audit.EntityFeatureFlag, fl.ID, nil, fl)
	s.cache.PutFlag(ctx, fl)

	s.logger.InfoContext(ctx, "flag created",
		logger.TenantID(tenantID), logger.FeatureKey(parent.Key), logger.Env(string(env)))
	return fl, nil
}

// UpdateFlag applies a partial update. Changing the strategy type without a
// new config re-validates the stored config against the new type.
func (s *Service) UpdateFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment, in UpdateFlagInput) (*feature.Flag, error) {
	env, err := parseEnvironment("env", env)
	if err != nil {
		return nil, err
	}

	var st feature.StrategyType
	if in.StrategyType != nil {
		if st, err = parseStrategyType("strategyType", *in.StrategyType); err != nil {
			return nil, err
		}
	}

	existing, err := s.store.FindFlag(ctx, tenantID, featureID, env)
	if err != nil {
		return nil, storeError(err)
	}
	before := existing.Clone()

	updated := existing.Clone()
	if in.Enabled != nil {
		updated.Enabled = *in.Enabled
	}
	if st != "" {
		updated.StrategyType = st
	}

	switch {
	case len(in.StrategyConfig) > 0:
		cfg, err := feature.ParseConfig(updated.StrategyType, in.StrategyConfig)
		if err != nil {
			return nil, validationError(err)
		}
		updated.StrategyConfig = cfg
	case updated.StrategyType != before.StrategyType:
		if updated.StrategyType == feature.StrategyBoolean {
			updated.StrategyConfig = feature.BooleanConfig{}
		}
		if err := feature.ValidateConfig(updated.StrategyType, updated.StrategyConfig); err != nil {
			return nil, validationError(err)
		}
	}

	updated.UpdatedAt = s.timestamp()
	if err := s.store.UpdateFlag(ctx, updated, in.IfVersion); err != nil {
		return nil, storeError(err)
	}

	s.record(ctx, audit.ActionUpdate, tenantID, audit.EntityFeatureFlag, updated.ID, before, updated)
	s.cache.PutFlag(ctx, updated)
	return updated, nil
}

// RemoveFlag deletes the flag of one environment.
func (s *Service) RemoveFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) error {
	env, err := parseEnvironment("env", env)
	if err != nil {
		return err
	}
	existing, err := s.store.FindFlag(ctx, tenantID, featureID, env)
	if err != nil {
		return storeError(err)
	}
	if err := s.store.DeleteFlag(ctx, tenantID, featureID, env); err != nil {
		return storeError(err)
	}

	s.record(ctx, audit.ActionDelete, tenantID, audit.EntityFeatureFlag, existing.ID, existing, nil)
	s.cache.DeleteFlag(ctx, existing)
	s.cache.InvalidateFeatures(ctx, tenantID)
	return nil
}

// GetFlag returns the flag of one environment, reading through the cache.
func (s *Service) GetFlag(ctx context.Context, tenantID, featureID uuid.UUID, env feature.Environment) (*feature.Flag, error) {
	env, err := parseEnvironment("env", env)
	if err != nil {
		return nil, err
	}
	return s.loadFlag(ctx, tenantID, featureID, env)
}

// ListFlags returns every flag of a feature ordered DEV, STAGING, PROD.
func (s *Service) ListFlags(ctx context.Context, tenantID, featureID uuid.UUID) ([]*feature.Flag, error) {
	if _, err := s.store.FindFeature(ctx, tenantID, featureID); err != nil {
		return nil, storeError(err)
	}
	flags, err := s.store.ListFlagsForFeature(ctx, tenantID, featureID)
	if err != nil {
		return nil, storeError(err)
	}
	if flags == nil {
		flags = []*feature.Flag{}
	}
	return flags, nil
}

package flags

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Evaluate decides whether featureKey is on for the subject in ectx. An
// unknown feature or a missing or disabled flag evaluates to disabled
// without an error. Other failures return the disabled result together with
// the error.
func (s *Service) Evaluate(ctx context.Context, tenantID uuid.UUID, featureKey string, env feature.Environment, ectx feature.EvaluationContext) (feature.EvaluationResult, error) {
	start := s.now()
	disabled := feature.Disabled(featureKey)

	env, err := parseEnvironment("env", env)
	if err != nil {
		return disabled, err
	}

	result, err := s.evaluate(ctx, tenantID, featureKey, env, ectx)
	if err != nil {
		s.metrics.EvaluationFailed()
		s.logger.ErrorContext(ctx, "flag evaluation failed",
			logger.TenantID(tenantID), logger.FeatureKey(featureKey), logger.Env(string(env)), logger.Error(err))
		return disabled, err
	}

	s.metrics.ObserveEvaluation(string(env), string(result.Reason), s.now().Sub(start))
	return result, nil
}

func (s *Service) evaluate(ctx context.Context, tenantID uuid.UUID, featureKey string, env feature.Environment, ectx feature.EvaluationContext) (feature.EvaluationResult, error) {
	f, err := s.store.FindFeatureByKey(ctx, tenantID, featureKey)
	if err != nil {
		if err = storeError(err); errors.Is(err, ErrNotFound) {
			return feature.Disabled(featureKey), nil
		}
		return feature.EvaluationResult{}, err
	}

	fl, err := s.loadFlag(ctx, tenantID, f.ID, env)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return feature.Disabled(featureKey), nil
		}
		return feature.EvaluationResult{}, err
	}

	return s.evaluator.EvaluateFlag(featureKey, fl, ectx), nil
}


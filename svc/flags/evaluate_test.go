package flags_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/svc/flagcache"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

func TestService_Evaluate(t *testing.T) {
	t.Parallel()

	t.Run("percentage 100 matches", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "new_checkout_v2")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyPercentage, `{"percentage":100}`)

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "new_checkout_v2", feature.EnvProd,
			feature.EvaluationContext{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, feature.EvaluationResult{FeatureKey: "new_checkout_v2", Enabled: true, Reason: feature.ReasonPercentageMatch}, res)
	})

	t.Run("percentage 0 misses", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "new_checkout_v2")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyPercentage, `{"percentage":0}`)

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "new_checkout_v2", feature.EnvProd,
			feature.EvaluationContext{UserID: "u1"})
		require.NoError(t, err)
		assert.False(t, res.Enabled)
		assert.Equal(t, feature.ReasonPercentageMiss, res.Reason)
	})

	t.Run("user targeting", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "beta_features")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyUserTargeting,
			`{"rules":[{"attribute":"email","operator":"contains","values":["@acme.com"]}],"defaultValue":false}`)

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "beta_features", feature.EnvProd,
			feature.EvaluationContext{Attributes: map[string]any{"email": "john@acme.com"}})
		require.NoError(t, err)
		assert.True(t, res.Enabled)
		assert.Equal(t, feature.ReasonTargetingMatch, res.Reason)

		res, err = fx.svc.Evaluate(context.Background(), fx.tenantID, "beta_features", feature.EnvProd,
			feature.EvaluationContext{Attributes: map[string]any{"email": "john@other.com"}})
		require.NoError(t, err)
		assert.False(t, res.Enabled)
		assert.Equal(t, feature.ReasonTargetingDefault, res.Reason)
	})

	t.Run("disabled flag", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "dark_mode")
		fx.flag(t, ft.ID, feature.EnvProd, false, feature.StrategyBoolean, "")

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "dark_mode", feature.EnvProd, feature.EvaluationContext{})
		require.NoError(t, err)
		assert.Equal(t, feature.Disabled("dark_mode"), res)
	})

	t.Run("unknown feature and missing flag are disabled", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		fx.feature(t, "dark_mode")

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "missing", feature.EnvProd, feature.EvaluationContext{})
		require.NoError(t, err)
		assert.Equal(t, feature.Disabled("missing"), res)

		res, err = fx.svc.Evaluate(context.Background(), fx.tenantID, "dark_mode", feature.EnvDev, feature.EvaluationContext{})
		require.NoError(t, err)
		assert.Equal(t, feature.Disabled("dark_mode"), res)
	})

	t.Run("features are tenant scoped", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "dark_mode")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyBoolean, "")

		res, err := fx.svc.Evaluate(context.Background(), uuid.New(), "dark_mode", feature.EnvProd, feature.EvaluationContext{})
		require.NoError(t, err)
		assert.False(t, res.Enabled)
	})

	t.Run("store failure returns disabled result with error", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		fx.store.findByKeyErr = errStoreDown

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "dark_mode", feature.EnvProd, feature.EvaluationContext{})
		require.ErrorIs(t, err, errStoreDown)
		assert.Equal(t, feature.Disabled("dark_mode"), res)
	})

	t.Run("invalid environment", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		res, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "dark_mode", "QA", feature.EvaluationContext{})
		require.ErrorIs(t, err, flags.ErrValidation)
		assert.False(t, res.Enabled)
	})

	t.Run("evaluation populates the flag cache", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "dark_mode")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyBoolean, "")
		fx.cache.Clear()

		_, ok := fx.cache.GetFlag(context.Background(), fx.tenantID, ft.ID, feature.EnvProd)
		require.False(t, ok)

		_, err := fx.svc.Evaluate(context.Background(), fx.tenantID, "dark_mode", feature.EnvProd, feature.EvaluationContext{})
		require.NoError(t, err)

		cached, ok := fx.cache.GetFlag(context.Background(), fx.tenantID, ft.ID, feature.EnvProd)
		require.True(t, ok)
		assert.True(t, cached.Enabled)
	})
}

func TestService_Evaluate_WithoutCache(t *testing.T) {
	t.Parallel()

	cached := newFixture(t)
	uncached := newFixture(t, flags.WithCache(flagcache.NoOp{}))

	for _, fx := range []*fixture{cached, uncached} {
		ft := fx.feature(t, "new_checkout_v2")
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyPercentage, `{"percentage":50}`)
	}

	for _, user := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		ectx := feature.EvaluationContext{UserID: user}
		a, err := cached.svc.Evaluate(context.Background(), cached.tenantID, "new_checkout_v2", feature.EnvProd, ectx)
		require.NoError(t, err)
		b, err := uncached.svc.Evaluate(context.Background(), uncached.tenantID, "new_checkout_v2", feature.EnvProd, ectx)
		require.NoError(t, err)
		assert.Equal(t, a, b, user)
		assert.Equal(t, feature.Bucket("new_checkout_v2", user) < 50, a.Enabled, user)
	}
}

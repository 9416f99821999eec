package flags_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/svc/flags"
)

func TestService_Promote(t *testing.T) {
	t.Parallel()

	t.Run("creates missing target flag", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()
		f1 := fx.feature(t, "f1")
		fx.flag(t, f1.ID, feature.EnvDev, true, feature.StrategyBoolean, "")

		res, err := fx.svc.Promote(ctx, fx.tenantID, flags.PromoteInput{SourceEnv: feature.EnvDev, TargetEnv: feature.EnvProd})
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "f1", res.Changes[0].FeatureKey)
		assert.Equal(t, flags.ActionCreate, res.Changes[0].Action)
		assert.Equal(t, []flags.FieldDiff{
			{Field: "enabled", NewValue: true},
			{Field: "strategyType", NewValue: feature.StrategyBoolean},
		}, res.Changes[0].Diff)
		assert.Equal(t, flags.PromotionStats{FeaturesScanned: 1, FlagsCreated: 1}, res.Stats)

		evaluated, err := fx.svc.Evaluate(ctx, fx.tenantID, "f1", feature.EnvProd, feature.EvaluationContext{})
		require.NoError(t, err)
		assert.True(t, evaluated.Enabled)
	})

	t.Run("updates differing target and is idempotent", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()
		ft := fx.feature(t, "new_checkout_v2")
		fx.flag(t, ft.ID, feature.EnvStaging, true, feature.StrategyPercentage, `{"percentage":50}`)
		fx.flag(t, ft.ID, feature.EnvProd, false, feature.StrategyPercentage, `{"percentage":10}`)

		in := flags.PromoteInput{SourceEnv: feature.EnvStaging, TargetEnv: feature.EnvProd}
		res, err := fx.svc.Promote(ctx, fx.tenantID, in)
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, flags.ActionUpdate, res.Changes[0].Action)
		assert.Equal(t, []flags.FieldDiff{
			{Field: "enabled", OldValue: false, NewValue: true},
			{Field: "strategyConfig", OldValue: feature.PercentageConfig{Percentage: 10}, NewValue: feature.PercentageConfig{Percentage: 50}},
		}, res.Changes[0].Diff)
		assert.Equal(t, 1, res.Stats.FlagsUpdated)

		prod, err := fx.svc.GetFlag(ctx, fx.tenantID, ft.ID, feature.EnvProd)
		require.NoError(t, err)
		assert.True(t, prod.Enabled)
		assert.Equal(t, feature.PercentageConfig{Percentage: 50}, prod.StrategyConfig)
		assert.Equal(t, 2, prod.Version)

		again, err := fx.svc.Promote(ctx, fx.tenantID, in)
		require.NoError(t, err)
		assert.Equal(t, flags.PromotionStats{FeaturesScanned: 1, FlagsSkipped: 1}, again.Stats)
		assert.Equal(t, flags.ActionSkip, again.Changes[0].Action)
		assert.Empty(t, again.Changes[0].Diff)
		assert.NotNil(t, again.Changes[0].Diff)
	})

	t.Run("targeting configs compare structurally", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ft := fx.feature(t, "beta_features")
		fx.flag(t, ft.ID, feature.EnvDev, true, feature.StrategyUserTargeting,
			`{"defaultValue":false,"rules":[{"attribute":"plan","operator":"in","values":[]}]}`)
		fx.flag(t, ft.ID, feature.EnvProd, true, feature.StrategyUserTargeting,
			`{"rules":[{"values":[],"operator":"in","attribute":"plan"}],"defaultValue":false}`)

		res, err := fx.svc.Promote(context.Background(), fx.tenantID, flags.PromoteInput{SourceEnv: feature.EnvDev, TargetEnv: feature.EnvProd})
		require.NoError(t, err)
		assert.Equal(t, flags.ActionSkip, res.Changes[0].Action)
		assert.Empty(t, res.Changes[0].Diff)
	})

	t.Run("dry run reports without mutating", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()
		a := fx.feature(t, "a_feature")
		b := fx.feature(t, "b_feature")
		fx.feature(t, "c_feature")
		fx.flag(t, a.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		fx.flag(t, b.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		fx.flag(t, b.ID, feature.EnvStaging, false, feature.StrategyBoolean, "")
		auditBefore := fx.audit.Len()

		dry, err := fx.svc.Promote(ctx, fx.tenantID, flags.PromoteInput{SourceEnv: "dev", TargetEnv: "staging", DryRun: true})
		require.NoError(t, err)
		assert.True(t, dry.DryRun)
		assert.Equal(t, feature.EnvDev, dry.SourceEnv)
		assert.Equal(t, flags.PromotionStats{FeaturesScanned: 3, FlagsCreated: 1, FlagsUpdated: 1, FlagsSkipped: 1}, dry.Stats)
		assert.Equal(t, auditBefore, fx.audit.Len())

		_, err = fx.svc.GetFlag(ctx, fx.tenantID, a.ID, feature.EnvStaging)
		require.ErrorIs(t, err, flags.ErrNotFound)

		applied, err := fx.svc.Promote(ctx, fx.tenantID, flags.PromoteInput{SourceEnv: "dev", TargetEnv: "staging"})
		require.NoError(t, err)
		assert.Equal(t, dry.Stats, applied.Stats)
		assert.Equal(t, dry.Changes, applied.Changes)

		keys := []string{}
		for _, c := range applied.Changes {
			keys = append(keys, c.FeatureKey)
		}
		assert.Equal(t, []string{"a_feature", "b_feature", "c_feature"}, keys)
		assert.Equal(t, []flags.FieldDiff{{Field: "source_flag"}}, applied.Changes[2].Diff)
	})

	t.Run("feature keys filter", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		a := fx.feature(t, "a_feature")
		b := fx.feature(t, "b_feature")
		fx.flag(t, a.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		fx.flag(t, b.ID, feature.EnvDev, true, feature.StrategyBoolean, "")

		res, err := fx.svc.Promote(context.Background(), fx.tenantID, flags.PromoteInput{
			SourceEnv: feature.EnvDev, TargetEnv: feature.EnvProd, FeatureKeys: []string{"b_feature"},
		})
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "b_feature", res.Changes[0].FeatureKey)
		assert.Equal(t, 1, res.Stats.FeaturesScanned)
	})

	t.Run("invalid environments", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		_, err := fx.svc.Promote(context.Background(), fx.tenantID, flags.PromoteInput{SourceEnv: feature.EnvDev, TargetEnv: feature.EnvDev})
		require.ErrorIs(t, err, flags.ErrValidation)

		_, err = fx.svc.Promote(context.Background(), fx.tenantID, flags.PromoteInput{SourceEnv: "QA", TargetEnv: feature.EnvDev})
		require.ErrorIs(t, err, flags.ErrValidation)
	})

	t.Run("invalid stored source config is skipped", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()
		a := fx.feature(t, "a_feature")
		b := fx.feature(t, "b_feature")
		require.NoError(t, fx.store.MemoryStore.CreateFlag(ctx, &feature.Flag{
			ID:             uuid.New(),
			TenantID:       fx.tenantID,
			FeatureID:      a.ID,
			Env:            feature.EnvDev,
			Enabled:        true,
			StrategyType:   feature.StrategyPercentage,
			StrategyConfig: feature.PercentageConfig{Percentage: 150},
		}))
		fx.flag(t, b.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		c := fx.feature(t, "c_feature")
		require.NoError(t, fx.store.MemoryStore.CreateFlag(ctx, &feature.Flag{
			ID:           uuid.New(),
			TenantID:     fx.tenantID,
			FeatureID:    c.ID,
			Env:          feature.EnvDev,
			Enabled:      true,
			StrategyType: feature.StrategyUserTargeting,
			StrategyConfig: feature.UserTargetingConfig{
				Rules: []feature.Rule{{Attribute: "email", Operator: "starts_with", Values: []string{"qa"}}},
			},
		}))

		for _, dryRun := range []bool{true, false} {
			res, err := fx.svc.Promote(ctx, fx.tenantID, flags.PromoteInput{
				SourceEnv: feature.EnvDev,
				TargetEnv: feature.EnvProd,
				DryRun:    dryRun,
			})
			require.NoError(t, err)
			require.Len(t, res.Changes, 3)

			for i, field := range map[int]string{0: "percentage", 2: "operator"} {
				skipped := res.Changes[i]
				assert.Equal(t, flags.ActionSkip, skipped.Action, skipped.FeatureKey)
				require.Len(t, skipped.Diff, 1)
				assert.Equal(t, "source_config", skipped.Diff[0].Field)
				assert.Contains(t, skipped.Diff[0].NewValue, field)
			}

			assert.Equal(t, "b_feature", res.Changes[1].FeatureKey)
			assert.Equal(t, flags.ActionCreate, res.Changes[1].Action)
			assert.Equal(t, flags.PromotionStats{FeaturesScanned: 3, FlagsCreated: 1, FlagsSkipped: 2}, res.Stats)
		}

		_, err := fx.svc.GetFlag(ctx, fx.tenantID, a.ID, feature.EnvProd)
		require.ErrorIs(t, err, flags.ErrNotFound)
		_, err = fx.svc.GetFlag(ctx, fx.tenantID, b.ID, feature.EnvProd)
		require.NoError(t, err)
		_, err = fx.svc.GetFlag(ctx, fx.tenantID, c.ID, feature.EnvProd)
		require.ErrorIs(t, err, flags.ErrNotFound)
	})

	t.Run("first failure aborts with partial result", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		a := fx.feature(t, "a_feature")
		b := fx.feature(t, "b_feature")
		fx.flag(t, a.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		fx.flag(t, b.ID, feature.EnvDev, true, feature.StrategyBoolean, "")
		fx.store.createFlagErr = errStoreDown

		res, err := fx.svc.Promote(context.Background(), fx.tenantID, flags.PromoteInput{SourceEnv: feature.EnvDev, TargetEnv: feature.EnvProd})
		require.ErrorIs(t, err, errStoreDown)
		require.NotNil(t, res)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "a_feature", res.Changes[0].FeatureKey)
		assert.Equal(t, 2, res.Stats.FeaturesScanned)
	})
}

package flags

import (
	"context"
	"log/slog"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/logger"
	"github.com/dmitrymomot/flagkit/pkg/validator"
)

// PromotionAction is what promotion does with one feature.
type PromotionAction string

const (
	ActionCreate PromotionAction = "CREATE"
	ActionUpdate PromotionAction = "UPDATE"
	ActionSkip   PromotionAction = "SKIP"
)

// PromoteInput selects the environments and, optionally, the features to
// promote. An empty FeatureKeys promotes every feature of the tenant.
type PromoteInput struct {
	SourceEnv   feature.Environment `json:"sourceEnv"`
	TargetEnv   feature.Environment `json:"targetEnv"`
	DryRun      bool                `json:"dryRun"`
	FeatureKeys []string            `json:"featureKeys,omitempty"`
}

// FieldDiff is one changed field. Values are nil when absent.
type FieldDiff struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// PromotionChange is the outcome for one feature.
type PromotionChange struct {
	FeatureKey string          `json:"featureKey"`
	Action     PromotionAction `json:"action"`
	Diff       []FieldDiff     `json:"diff"`
}

type PromotionStats struct {
	FeaturesScanned int `json:"featuresScanned"`
	FlagsCreated    int `json:"flagsCreated"`
	FlagsUpdated    int `json:"flagsUpdated"`
	FlagsSkipped    int `json:"flagsSkipped"`
}

// PromotionResult reports a promotion. Dry runs report the same stats and
// changes a real run would produce.
type PromotionResult struct {
	SourceEnv feature.Environment `json:"sourceEnv"`
	TargetEnv feature.Environment `json:"targetEnv"`
	DryRun    bool                `json:"dryRun"`
	Stats     PromotionStats      `json:"stats"`
	Changes   []PromotionChange   `json:"changes"`
}

// configsEqual compares typed configs structurally. Nil and empty slices
// are equal.
func configsEqual(a, b feature.StrategyConfig) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

// Promote copies flag configuration from SourceEnv to TargetEnv. Features
// are processed in key order and each mutation goes through CreateFlag or
// UpdateFlag. Promotion is not atomic: the first failing mutation stops it
// and the partial result is returned with the error.
func (s *Service) Promote(ctx context.Context, tenantID uuid.UUID, in PromoteInput) (*PromotionResult, error) {
	src, tgt, err := in.environments()
	if err != nil {
		return nil, err
	}

	result := &PromotionResult{SourceEnv: src, TargetEnv: tgt, DryRun: in.DryRun, Changes: []PromotionChange{}}
	failed := true
	defer func() {
		s.metrics.Promotion(in.DryRun, failed, map[string]int{
			string(ActionCreate): result.Stats.FlagsCreated,
			string(ActionUpdate): result.Stats.FlagsUpdated,
			string(ActionSkip):   result.Stats.FlagsSkipped,
		})
	}()

	features, err := s.store.ListFeaturesWithFlags(ctx, tenantID, []feature.Environment{src, tgt}, in.FeatureKeys)
	if err != nil {
		return nil, storeError(err)
	}
	result.Stats.FeaturesScanned = len(features)

	for _, f := range features {
		change, err := s.promoteFeature(ctx, tenantID, f, src, tgt, in.DryRun)
		result.Changes = append(result.Changes, change)
		switch change.Action {
		case ActionCreate:
			result.Stats.FlagsCreated++
		case ActionUpdate:
			result.Stats.FlagsUpdated++
		default:
			result.Stats.FlagsSkipped++
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "promotion aborted",
				logger.TenantID(tenantID), logger.FeatureKey(f.Key), logger.Error(err))
			return result, err
		}
	}

	failed = false
	s.logger.InfoContext(ctx, "promotion finished",
		logger.TenantID(tenantID),
		logger.Group("promotion",
			slog.String("source", string(src)),
			slog.String("target", string(tgt)),
			slog.Bool("dry_run", in.DryRun),
			slog.Int("created", result.Stats.FlagsCreated),
			slog.Int("updated", result.Stats.FlagsUpdated),
			slog.Int("skipped", result.Stats.FlagsSkipped)))
	return result, nil
}

func (s *Service) promoteFeature(ctx context.Context, tenantID uuid.UUID, f *feature.FeatureWithFlags, src, tgt feature.Environment, dryRun bool) (PromotionChange, error) {
	change := PromotionChange{FeatureKey: f.Key, Diff: []FieldDiff{}}

	source := f.Flag(src)
	target := f.Flag(tgt)

	if source == nil {
		change.Action = ActionSkip
		change.Diff = append(change.Diff, FieldDiff{Field: "source_flag"})
		return change, nil
	}

	// a source config the write path would reject is reported, not copied
	raw, err := feature.EncodeConfig(source.StrategyConfig)
	if err == nil {
		_, err = feature.ParseConfig(source.StrategyType, raw)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "source flag config is invalid, feature not promoted",
			logger.TenantID(tenantID), logger.FeatureKey(f.Key), logger.Env(string(src)), logger.Error(err))
		change.Action = ActionSkip
		change.Diff = append(change.Diff, FieldDiff{Field: "source_config", NewValue: err.Error()})
		return change, nil
	}

	if target == nil {
		change.Action = ActionCreate
		change.Diff = append(change.Diff,
			FieldDiff{Field: "enabled", NewValue: source.Enabled},
			FieldDiff{Field: "strategyType", NewValue: source.StrategyType},
		)
		if dryRun {
			return change, nil
		}
		_, err = s.CreateFlag(ctx, tenantID, f.ID, CreateFlagInput{
			Env:            tgt,
			Enabled:        source.Enabled,
			StrategyType:   source.StrategyType,
			StrategyConfig: raw,
		})
		return change, err
	}

	if source.Enabled != target.Enabled {
		change.Diff = append(change.Diff, FieldDiff{Field: "enabled", OldValue: target.Enabled, NewValue: source.Enabled})
	}
	if source.StrategyType != target.StrategyType {
		change.Diff = append(change.Diff, FieldDiff{Field: "strategyType", OldValue: target.StrategyType, NewValue: source.StrategyType})
	}
	if !configsEqual(source.StrategyConfig, target.StrategyConfig) {
		change.Diff = append(change.Diff, FieldDiff{Field: "strategyConfig", OldValue: target.StrategyConfig, NewValue: source.StrategyConfig})
	}

	if len(change.Diff) == 0 {
		change.Action = ActionSkip
		return change, nil
	}

	change.Action = ActionUpdate
	if dryRun {
		return change, nil
	}
	enabled, st := source.Enabled, source.StrategyType
	_, err = s.UpdateFlag(ctx, tenantID, f.ID, tgt, UpdateFlagInput{
		Enabled:        &enabled,
		StrategyType:   &st,
		StrategyConfig: raw,
	})
	return change, err
}

func (in PromoteInput) environments() (feature.Environment, feature.Environment, error) {
	var errs validator.ValidationErrors
	src, err := feature.ParseEnvironment(string(in.SourceEnv))
	if err != nil {
		errs.Add("sourceEnv", "must be one of DEV, STAGING, PROD")
	}
	tgt, err := feature.ParseEnvironment(string(in.TargetEnv))
	if err != nil {
		errs.Add("targetEnv", "must be one of DEV, STAGING, PROD")
	}
	if errs.IsEmpty() && src == tgt {
		errs.Add("targetEnv", "must differ from sourceEnv")
	}
	if !errs.IsEmpty() {
		return "", "", validationError(errs)
	}
	return src, tgt, nil
}

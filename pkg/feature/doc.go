// Package feature holds the feature-flag domain model and the evaluation
// engine.
//
// A Feature belongs to a tenant and owns at most one Flag per Environment.
// A Flag carries a StrategyType and a typed StrategyConfig, a closed sum
// type with three variants:
//
//   - BooleanConfig: the flag is on for everyone while enabled.
//   - PercentageConfig: a sticky rollout to a share of users.
//   - UserTargetingConfig: ordered attribute rules with a default value.
//
// Configs cross the persistence and transport boundary as untyped JSON.
// DecodeConfig checks the JSON shape against the strategy type, ValidateConfig
// checks the semantic constraints (percentage range, known operators), and
// EncodeConfig writes the canonical form back. Writes must run both checks;
// reads of already persisted data only need DecodeConfig.
//
// # Evaluation
//
// Evaluator is pure and performs no I/O:
//
//	ev := feature.NewEvaluator()
//	res := ev.EvaluateFlag("new_checkout", flag, feature.EvaluationContext{
//		UserID:     "user-42",
//		Attributes: map[string]any{"email": "jane@acme.com"},
//	})
//	if res.Enabled {
//		// serve the new checkout
//	}
//
// Percentage rollouts use Bucket, an MD5-based hash of "featureKey:identifier"
// reduced to [0,99]. The same user always lands in the same bucket for a
// feature, across processes and restarts. Evaluations without a user id get a
// fresh random identifier and are therefore not sticky.
package feature

package feature

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// userIDAttribute is the attribute name the user id is exposed under to
// targeting rules.
const userIDAttribute = "userId"

// Evaluator decides whether a flag is on for an evaluation context.
// The zero value is ready to use.
type Evaluator struct {
	anonymousID func() string
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithAnonymousIDGenerator sets the source of identifiers used to bucket
// evaluations that carry no user id. Defaults to random UUIDs.
func WithAnonymousIDGenerator(fn func() string) EvaluatorOption {
	return func(e *Evaluator) {
		e.anonymousID = fn
	}
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateFlag evaluates flag for featureKey. A nil or disabled flag is
// always off.
func (e *Evaluator) EvaluateFlag(featureKey string, flag *Flag, ectx EvaluationContext) EvaluationResult {
	if flag == nil || !flag.Enabled {
		return Disabled(featureKey)
	}
	enabled, reason := e.Evaluate(featureKey, flag.StrategyType, flag.StrategyConfig, ectx)
	return EvaluationResult{FeatureKey: featureKey, Enabled: enabled, Reason: reason}
}

// Evaluate applies an enabled flag's strategy. A config of the wrong variant
// is treated as the zero config of st.
func (e *Evaluator) Evaluate(featureKey string, st StrategyType, cfg StrategyConfig, ectx EvaluationContext) (bool, Reason) {
	switch st {
	case StrategyBoolean:
		return true, ReasonBoolean

	case StrategyPercentage:
		c, _ := cfg.(PercentageConfig)
		id := ectx.UserID
		if id == "" {
			id = e.newAnonymousID()
		}
		if Bucket(featureKey, id) < c.Percentage {
			return true, ReasonPercentageMatch
		}
		return false, ReasonPercentageMiss

	case StrategyUserTargeting:
		c, _ := cfg.(UserTargetingConfig)
		if len(c.Rules) == 0 {
			return c.DefaultValue, ReasonTargetingDefault
		}
		attrs := targetingAttributes(ectx)
		for _, rule := range c.Rules {
			value, ok := attrs[rule.Attribute]
			if !ok {
				continue
			}
			if matchRule(rule, stringify(value)) {
				return true, ReasonTargetingMatch
			}
		}
		return c.DefaultValue, ReasonTargetingDefault
	}

	return false, ReasonFlagDisabled
}

func (e *Evaluator) newAnonymousID() string {
	if e.anonymousID != nil {
		return e.anonymousID()
	}
	return uuid.NewString()
}

// targetingAttributes merges the user id with the caller attributes. Caller
// attributes win on key collision.
func targetingAttributes(ectx EvaluationContext) map[string]any {
	attrs := make(map[string]any, len(ectx.Attributes)+1)
	if ectx.UserID != "" {
		attrs[userIDAttribute] = ectx.UserID
	}
	for k, v := range ectx.Attributes {
		attrs[k] = v
	}
	return attrs
}

func matchRule(rule Rule, value string) bool {
	switch rule.Operator {
	case OperatorEquals, OperatorIn:
		return slices.Contains(rule.Values, value)
	case OperatorContains:
		for _, v := range rule.Values {
			if strings.Contains(value, v) {
				return true
			}
		}
	}
	return false
}

// stringify renders an attribute value for rule matching. Objects fall back
// to compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}

	// lists join their elements with commas; null elements are empty
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			if el := rv.Index(i).Interface(); el != nil {
				parts[i] = stringify(el)
			}
		}
		return strings.Join(parts, ",")
	}

	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

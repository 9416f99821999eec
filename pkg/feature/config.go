package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dmitrymomot/flagkit/pkg/validator"
)

// StrategyConfig is the typed configuration of a rollout strategy. The set of
// implementations is closed: BooleanConfig, PercentageConfig and
// UserTargetingConfig.
type StrategyConfig interface {
	Type() StrategyType
	strategyConfig()
}

// BooleanConfig carries no settings.
type BooleanConfig struct{}

func (BooleanConfig) Type() StrategyType { return StrategyBoolean }
func (BooleanConfig) strategyConfig()    {}

// PercentageConfig enables a flag for Percentage percent of identifiers.
type PercentageConfig struct {
	Percentage int `json:"percentage"`
}

func (PercentageConfig) Type() StrategyType { return StrategyPercentage }
func (PercentageConfig) strategyConfig()    {}

// UserTargetingConfig enables a flag when any rule matches, otherwise it
// falls back to DefaultValue.
type UserTargetingConfig struct {
	Rules        []Rule `json:"rules"`
	DefaultValue bool   `json:"defaultValue"`
}

func (UserTargetingConfig) Type() StrategyType { return StrategyUserTargeting }
func (UserTargetingConfig) strategyConfig()    {}

// Operator compares an attribute value with the values of a rule.
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorIn       Operator = "in"
	OperatorContains Operator = "contains"
)

// Operators lists every supported operator.
var Operators = []Operator{OperatorEquals, OperatorIn, OperatorContains}

func (o Operator) Valid() bool {
	return slices.Contains(Operators, o)
}

// Rule is a single user-targeting condition.
type Rule struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
}

// DefaultConfig returns the zero config of a strategy type.
func DefaultConfig(t StrategyType) StrategyConfig {
	switch t {
	case StrategyBoolean:
		return BooleanConfig{}
	case StrategyPercentage:
		return PercentageConfig{}
	case StrategyUserTargeting:
		return UserTargetingConfig{Rules: []Rule{}}
	}
	return nil
}

// DecodeConfig converts the untyped JSON form into the variant selected by t.
// It rejects unknown keys, missing required keys and mistyped values but
// performs no range checks; see ValidateConfig.
func DecodeConfig(t StrategyType, raw json.RawMessage) (StrategyConfig, error) {
	switch t {
	case StrategyBoolean:
		if isNull(raw) {
			return BooleanConfig{}, nil
		}
		var shape struct{}
		if err := strictUnmarshal(raw, &shape); err != nil {
			return nil, invalidConfig("strategyConfig", "boolean strategy takes no configuration")
		}
		return BooleanConfig{}, nil

	case StrategyPercentage:
		var shape struct {
			Percentage *float64 `json:"percentage"`
		}
		if isNull(raw) || strictUnmarshal(raw, &shape) != nil {
			return nil, invalidConfig("strategyConfig", "percentage strategy requires {\"percentage\": integer}")
		}
		if shape.Percentage == nil {
			return nil, invalidConfig("strategyConfig.percentage", "field is required")
		}
		p := *shape.Percentage
		if p != math.Trunc(p) || math.Abs(p) > math.MaxInt32 {
			return nil, invalidConfig("strategyConfig.percentage", "must be an integer")
		}
		return PercentageConfig{Percentage: int(p)}, nil

	case StrategyUserTargeting:
		var shape struct {
			Rules *[]struct {
				Attribute *string   `json:"attribute"`
				Operator  *string   `json:"operator"`
				Values    *[]string `json:"values"`
			} `json:"rules"`
			DefaultValue *bool `json:"defaultValue"`
		}
		if isNull(raw) || strictUnmarshal(raw, &shape) != nil {
			return nil, invalidConfig("strategyConfig",
				"user targeting strategy requires {\"rules\": [{attribute, operator, values}], \"defaultValue\": boolean}")
		}

		var errs validator.ValidationErrors
		if shape.Rules == nil {
			errs.Add("strategyConfig.rules", "field is required")
		}
		if shape.DefaultValue == nil {
			errs.Add("strategyConfig.defaultValue", "field is required")
		}
		if !errs.IsEmpty() {
			return nil, errors.Join(ErrInvalidStrategyConfig, errs)
		}

		cfg := UserTargetingConfig{
			Rules:        make([]Rule, 0, len(*shape.Rules)),
			DefaultValue: *shape.DefaultValue,
		}
		for i, r := range *shape.Rules {
			field := fmt.Sprintf("strategyConfig.rules[%d]", i)
			if r.Attribute == nil {
				errs.Add(field+".attribute", "field is required")
			}
			if r.Operator == nil {
				errs.Add(field+".operator", "field is required")
			}
			if r.Values == nil {
				errs.Add(field+".values", "field is required")
			}
			if r.Attribute == nil || r.Operator == nil || r.Values == nil {
				continue
			}
			cfg.Rules = append(cfg.Rules, Rule{
				Attribute: *r.Attribute,
				Operator:  Operator(*r.Operator),
				Values:    slices.Clone(*r.Values),
			})
		}
		if !errs.IsEmpty() {
			return nil, errors.Join(ErrInvalidStrategyConfig, errs)
		}
		return cfg, nil
	}

	return nil, errors.Join(ErrInvalidStrategyType, fmt.Errorf("unknown strategy type %q", t))
}

// ValidateConfig checks that cfg is the variant of t and that its values are
// acceptable for a write.
func ValidateConfig(t StrategyType, cfg StrategyConfig) error {
	if !t.Valid() {
		return errors.Join(ErrInvalidStrategyType, fmt.Errorf("unknown strategy type %q", t))
	}
	if cfg == nil {
		if t == StrategyBoolean {
			return nil
		}
		return invalidConfig("strategyConfig", "field is required")
	}
	if cfg.Type() != t {
		return invalidConfig("strategyConfig",
			fmt.Sprintf("%s config does not match strategy type %s", cfg.Type(), t))
	}

	var rules []validator.Rule
	switch c := cfg.(type) {
	case PercentageConfig:
		rules = append(rules, validator.RangeNum("strategyConfig.percentage", c.Percentage, 0, 100))
	case UserTargetingConfig:
		for i, r := range c.Rules {
			field := fmt.Sprintf("strategyConfig.rules[%d]", i)
			rules = append(rules,
				validator.RequiredString(field+".attribute", r.Attribute),
				validator.InList(field+".operator", r.Operator, Operators),
			)
		}
	}

	if err := validator.Apply(rules...); err != nil {
		return errors.Join(ErrInvalidStrategyConfig, err)
	}
	return nil
}

// ParseConfig decodes and validates raw for a write.
func ParseConfig(t StrategyType, raw json.RawMessage) (StrategyConfig, error) {
	cfg, err := DecodeConfig(t, raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(t, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfig returns the canonical JSON form of cfg. A nil config encodes
// as an empty object.
func EncodeConfig(cfg StrategyConfig) (json.RawMessage, error) {
	switch c := cfg.(type) {
	case nil, BooleanConfig:
		return json.RawMessage(`{}`), nil
	case UserTargetingConfig:
		out := CloneConfig(c).(UserTargetingConfig)
		for i := range out.Rules {
			if out.Rules[i].Values == nil {
				out.Rules[i].Values = []string{}
			}
		}
		return json.Marshal(out)
	default:
		return json.Marshal(c)
	}
}

// CloneConfig returns a deep copy of cfg.
func CloneConfig(cfg StrategyConfig) StrategyConfig {
	c, ok := cfg.(UserTargetingConfig)
	if !ok {
		return cfg
	}
	rules := make([]Rule, len(c.Rules))
	for i, r := range c.Rules {
		rules[i] = Rule{Attribute: r.Attribute, Operator: r.Operator, Values: slices.Clone(r.Values)}
	}
	return UserTargetingConfig{Rules: rules, DefaultValue: c.DefaultValue}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func invalidConfig(field, message string) error {
	return errors.Join(ErrInvalidStrategyConfig, validator.ValidationErrors{{Field: field, Message: message}})
}

package feature_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/validator"
)

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		st      feature.StrategyType
		raw     string
		want    feature.StrategyConfig
		wantErr bool
	}{
		{name: "boolean null", st: feature.StrategyBoolean, raw: `null`, want: feature.BooleanConfig{}},
		{name: "boolean empty", st: feature.StrategyBoolean, raw: ``, want: feature.BooleanConfig{}},
		{name: "boolean object", st: feature.StrategyBoolean, raw: `{}`, want: feature.BooleanConfig{}},
		{name: "boolean with settings", st: feature.StrategyBoolean, raw: `{"percentage":5}`, wantErr: true},
		{name: "percentage", st: feature.StrategyPercentage, raw: `{"percentage":25}`, want: feature.PercentageConfig{Percentage: 25}},
		{name: "percentage out of range decodes", st: feature.StrategyPercentage, raw: `{"percentage":150}`, want: feature.PercentageConfig{Percentage: 150}},
		{name: "percentage fraction", st: feature.StrategyPercentage, raw: `{"percentage":12.5}`, wantErr: true},
		{name: "percentage string", st: feature.StrategyPercentage, raw: `{"percentage":"25"}`, wantErr: true},
		{name: "percentage missing", st: feature.StrategyPercentage, raw: `{}`, wantErr: true},
		{name: "percentage null", st: feature.StrategyPercentage, raw: `null`, wantErr: true},
		{name: "percentage unknown key", st: feature.StrategyPercentage, raw: `{"percentage":1,"seed":2}`, wantErr: true},
		{
			name: "targeting",
			st:   feature.StrategyUserTargeting,
			raw:  `{"rules":[{"attribute":"email","operator":"contains","values":["@acme.com"]}],"defaultValue":true}`,
			want: feature.UserTargetingConfig{
				Rules:        []feature.Rule{{Attribute: "email", Operator: feature.OperatorContains, Values: []string{"@acme.com"}}},
				DefaultValue: true,
			},
		},
		{
			name: "targeting keeps unknown operators",
			st:   feature.StrategyUserTargeting,
			raw:  `{"rules":[{"attribute":"a","operator":"regex","values":[]}],"defaultValue":false}`,
			want: feature.UserTargetingConfig{
				Rules: []feature.Rule{{Attribute: "a", Operator: "regex", Values: []string{}}},
			},
		},
		{name: "targeting without default", st: feature.StrategyUserTargeting, raw: `{"rules":[]}`, wantErr: true},
		{name: "targeting without rules", st: feature.StrategyUserTargeting, raw: `{"defaultValue":true}`, wantErr: true},
		{name: "targeting rules not a list", st: feature.StrategyUserTargeting, raw: `{"rules":{},"defaultValue":true}`, wantErr: true},
		{name: "targeting rule missing values", st: feature.StrategyUserTargeting, raw: `{"rules":[{"attribute":"a","operator":"in"}],"defaultValue":true}`, wantErr: true},
		{name: "targeting numeric values", st: feature.StrategyUserTargeting, raw: `{"rules":[{"attribute":"a","operator":"in","values":[1]}],"defaultValue":true}`, wantErr: true},
		{name: "unknown type", st: "SCHEDULED", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := feature.DecodeConfig(tt.st, json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeConfig_FieldErrors(t *testing.T) {
	t.Parallel()

	_, err := feature.DecodeConfig(feature.StrategyUserTargeting,
		json.RawMessage(`{"rules":[{"attribute":"a","values":[]}],"defaultValue":false}`))
	require.ErrorIs(t, err, feature.ErrInvalidStrategyConfig)

	errs := validator.ExtractValidationErrors(err)
	require.NotNil(t, errs)
	assert.True(t, errs.Has("strategyConfig.rules[0].operator"))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	t.Run("accepts valid configs", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, feature.ValidateConfig(feature.StrategyBoolean, nil))
		assert.NoError(t, feature.ValidateConfig(feature.StrategyBoolean, feature.BooleanConfig{}))
		assert.NoError(t, feature.ValidateConfig(feature.StrategyPercentage, feature.PercentageConfig{Percentage: 0}))
		assert.NoError(t, feature.ValidateConfig(feature.StrategyPercentage, feature.PercentageConfig{Percentage: 100}))
		assert.NoError(t, feature.ValidateConfig(feature.StrategyUserTargeting, feature.UserTargetingConfig{}))
	})

	t.Run("rejects out of range percentage", func(t *testing.T) {
		t.Parallel()
		for _, p := range []int{-1, 101} {
			err := feature.ValidateConfig(feature.StrategyPercentage, feature.PercentageConfig{Percentage: p})
			require.ErrorIs(t, err, feature.ErrInvalidStrategyConfig)
			assert.True(t, validator.ExtractValidationErrors(err).Has("strategyConfig.percentage"))
		}
	})

	t.Run("rejects mismatched variant", func(t *testing.T) {
		t.Parallel()
		err := feature.ValidateConfig(feature.StrategyPercentage, feature.BooleanConfig{})
		assert.ErrorIs(t, err, feature.ErrInvalidStrategyConfig)
	})

	t.Run("rejects missing config", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, feature.ValidateConfig(feature.StrategyUserTargeting, nil), feature.ErrInvalidStrategyConfig)
	})

	t.Run("rejects unknown operator and empty attribute", func(t *testing.T) {
		t.Parallel()
		err := feature.ValidateConfig(feature.StrategyUserTargeting, feature.UserTargetingConfig{
			Rules: []feature.Rule{{Attribute: "", Operator: "regex", Values: []string{"x"}}},
		})
		errs := validator.ExtractValidationErrors(err)
		assert.Equal(t, []string{"strategyConfig.rules[0].attribute", "strategyConfig.rules[0].operator"}, errs.Fields())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, feature.ValidateConfig("SCHEDULED", nil), feature.ErrInvalidStrategyType)
	})
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := feature.ParseConfig(feature.StrategyPercentage, json.RawMessage(`{"percentage":40}`))
	require.NoError(t, err)
	assert.Equal(t, feature.PercentageConfig{Percentage: 40}, cfg)

	_, err = feature.ParseConfig(feature.StrategyPercentage, json.RawMessage(`{"percentage":400}`))
	assert.ErrorIs(t, err, feature.ErrInvalidStrategyConfig)
}

func TestEncodeConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  feature.StrategyConfig
		want string
	}{
		{"nil", nil, `{}`},
		{"boolean", feature.BooleanConfig{}, `{}`},
		{"percentage", feature.PercentageConfig{Percentage: 30}, `{"percentage":30}`},
		{"empty targeting", feature.UserTargetingConfig{}, `{"rules":[],"defaultValue":false}`},
		{
			"targeting",
			feature.UserTargetingConfig{Rules: []feature.Rule{{Attribute: "a", Operator: feature.OperatorIn}}, DefaultValue: true},
			`{"rules":[{"attribute":"a","operator":"in","values":[]}],"defaultValue":true}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw, err := feature.EncodeConfig(tt.cfg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestCloneConfig(t *testing.T) {
	t.Parallel()

	orig := feature.UserTargetingConfig{
		Rules: []feature.Rule{{Attribute: "a", Operator: feature.OperatorIn, Values: []string{"x"}}},
	}
	clone := feature.CloneConfig(orig).(feature.UserTargetingConfig)
	clone.Rules[0].Values[0] = "changed"
	assert.Equal(t, "x", orig.Rules[0].Values[0])

	assert.Equal(t, feature.PercentageConfig{Percentage: 3}, feature.CloneConfig(feature.PercentageConfig{Percentage: 3}))
}

package flags

import (
	"encoding/json"
	"slices"

	"github.com/dmitrymomot/flagkit/pkg/feature"
	"github.com/dmitrymomot/flagkit/pkg/validator"
	"github.com/dmitrymomot/flagkit/svc/flagstore"
)

const (
	maxKeyLength         = 100
	maxNameLength        = 255
	maxDescriptionLength = 2000
)

// CreateFeatureInput describes a new feature.
type CreateFeatureInput struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in CreateFeatureInput) Validate() error {
	return validator.Apply(
		validator.RequiredString("key", in.Key),
		validator.MaxLenString("key", in.Key, maxKeyLength),
		validator.MatchesRegex("key", in.Key, feature.KeyPattern,
			"lowercase identifier starting with a letter (letters, digits, underscores)"),
		validator.RequiredString("name", in.Name),
		validator.MaxLenString("name", in.Name, maxNameLength),
		validator.MaxLenString("description", in.Description, maxDescriptionLength),
	)
}

// UpdateFeatureInput changes name and description. Nil fields are kept.
type UpdateFeatureInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (in UpdateFeatureInput) Validate() error {
	name, description := validator.Deref(in.Name), validator.Deref(in.Description)
	return validator.Apply(slices.Concat(
		validator.When(in.Name != nil,
			validator.RequiredString("name", name),
			validator.MaxLenString("name", name, maxNameLength)),
		validator.When(in.Description != nil,
			validator.MaxLenString("description", description, maxDescriptionLength)),
	)...)
}

// CreateFlagInput describes the flag of one environment. StrategyConfig is
// the JSON form of the configuration for StrategyType.
type CreateFlagInput struct {
	Env            feature.Environment  `json:"env"`
	Enabled        bool                 `json:"enabled"`
	StrategyType   feature.StrategyType `json:"strategyType"`
	StrategyConfig json.RawMessage      `json:"strategyConfig"`
}

// UpdateFlagInput is a partial flag update. Nil fields are kept. A positive
// IfVersion makes the update conditional on the stored version.
type UpdateFlagInput struct {
	Enabled        *bool                 `json:"enabled"`
	StrategyType   *feature.StrategyType `json:"strategyType"`
	StrategyConfig json.RawMessage       `json:"strategyConfig"`
	IfVersion      int                   `json:"-"`
}

// FeaturePage is one page of features.
type FeaturePage struct {
	Features []*feature.Feature `json:"data"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
}

// ListFeaturesInput selects a page of features.
type ListFeaturesInput = flagstore.ListOptions

func parseEnvironment(field string, env feature.Environment) (feature.Environment, error) {
	parsed, err := feature.ParseEnvironment(string(env))
	if err != nil {
		return "", validationError(validator.ValidationErrors{{
			Field:   field,
			Message: "must be one of DEV, STAGING, PROD",
		}})
	}
	return parsed, nil
}

func parseStrategyType(field string, st feature.StrategyType) (feature.StrategyType, error) {
	parsed, err := feature.ParseStrategyType(string(st))
	if err != nil {
		return "", validationError(validator.ValidationErrors{{
			Field:   field,
			Message: "must be one of BOOLEAN, PERCENTAGE, USER_TARGETING",
		}})
	}
	return parsed, nil
}

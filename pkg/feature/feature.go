package feature

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Environment is a deployment stage a flag is configured for.
type Environment string

const (
	EnvDev     Environment = "DEV"
	EnvStaging Environment = "STAGING"
	EnvProd    Environment = "PROD"
)

// Environments lists every environment in their canonical order.
var Environments = []Environment{EnvDev, EnvStaging, EnvProd}

// ParseEnvironment parses an environment name case-insensitively.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.ToUpper(strings.TrimSpace(s)))
	if !env.Valid() {
		return "", errors.Join(ErrInvalidEnvironment, fmt.Errorf("unknown environment %q", s))
	}
	return env, nil
}

func (e Environment) Valid() bool {
	switch e {
	case EnvDev, EnvStaging, EnvProd:
		return true
	}
	return false
}

// Rank orders environments DEV < STAGING < PROD. Unknown values sort last.
func (e Environment) Rank() int {
	switch e {
	case EnvDev:
		return 0
	case EnvStaging:
		return 1
	case EnvProd:
		return 2
	}
	return 3
}

func (e Environment) String() string { return string(e) }

// StrategyType selects the rollout strategy of a flag.
type StrategyType string

const (
	StrategyBoolean       StrategyType = "BOOLEAN"
	StrategyPercentage    StrategyType = "PERCENTAGE"
	StrategyUserTargeting StrategyType = "USER_TARGETING"
)

// StrategyTypes lists every supported strategy type.
var StrategyTypes = []StrategyType{StrategyBoolean, StrategyPercentage, StrategyUserTargeting}

func ParseStrategyType(s string) (StrategyType, error) {
	st := StrategyType(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", errors.Join(ErrInvalidStrategyType, fmt.Errorf("unknown strategy type %q", s))
	}
	return st, nil
}

func (t StrategyType) Valid() bool {
	switch t {
	case StrategyBoolean, StrategyPercentage, StrategyUserTargeting:
		return true
	}
	return false
}

// KeyPattern is the allowed shape of a feature key.
var KeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Feature is a tenant-scoped toggleable capability. Key is immutable.
type Feature struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenantId"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Flag is the per-environment configuration of a feature.
type Flag struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	FeatureID      uuid.UUID
	Env            Environment
	Enabled        bool
	StrategyType   StrategyType
	StrategyConfig StrategyConfig
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type flagJSON struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenantId"`
	FeatureID      uuid.UUID       `json:"featureId"`
	Env            Environment     `json:"env"`
	Enabled        bool            `json:"enabled"`
	StrategyType   StrategyType    `json:"strategyType"`
	StrategyConfig json.RawMessage `json:"strategyConfig"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (f Flag) MarshalJSON() ([]byte, error) {
	cfg, err := EncodeConfig(f.StrategyConfig)
	if err != nil {
		return nil, err
	}
	return json.Marshal(flagJSON{
		ID:             f.ID,
		TenantID:       f.TenantID,
		FeatureID:      f.FeatureID,
		Env:            f.Env,
		Enabled:        f.Enabled,
		StrategyType:   f.StrategyType,
		StrategyConfig: cfg,
		Version:        f.Version,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	})
}

// UnmarshalJSON decodes the config according to the strategy type. Only the
// shape is checked, so previously stored flags always load.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw flagJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := DecodeConfig(raw.StrategyType, raw.StrategyConfig)
	if err != nil {
		return err
	}
	*f = Flag{
		ID:             raw.ID,
		TenantID:       raw.TenantID,
		FeatureID:      raw.FeatureID,
		Env:            raw.Env,
		Enabled:        raw.Enabled,
		StrategyType:   raw.StrategyType,
		StrategyConfig: cfg,
		Version:        raw.Version,
		CreatedAt:      raw.CreatedAt,
		UpdatedAt:      raw.UpdatedAt,
	}
	return nil
}

// ETag returns the HTTP entity tag of this flag revision.
func (f *Flag) ETag() string {
	return fmt.Sprintf(`"%s-v%d"`, f.ID, f.Version)
}

// Clone returns a deep copy of the flag.
func (f *Flag) Clone() *Flag {
	if f == nil {
		return nil
	}
	c := *f
	c.StrategyConfig = CloneConfig(f.StrategyConfig)
	return &c
}

// FeatureWithFlags is a feature together with a subset of its flags.
type FeatureWithFlags struct {
	Feature
	Flags []*Flag `json:"flags"`
}

// Flag returns the flag for env or nil.
func (f *FeatureWithFlags) Flag(env Environment) *Flag {
	for _, fl := range f.Flags {
		if fl.Env == env {
			return fl
		}
	}
	return nil
}

// Reason explains an evaluation decision.
type Reason string

const (
	ReasonFlagDisabled     Reason = "flag_disabled"
	ReasonBoolean          Reason = "boolean"
	ReasonPercentageMatch  Reason = "percentage_match"
	ReasonPercentageMiss   Reason = "percentage_miss"
	ReasonTargetingMatch   Reason = "targeting_match"
	ReasonTargetingDefault Reason = "targeting_default"
)

// EvaluationContext is the caller-supplied subject of an evaluation.
type EvaluationContext struct {
	UserID     string         `json:"userId,omitempty"`
	Attributes map[string]any `json:"context,omitempty"`
}

// EvaluationResult is the decision for one feature.
type EvaluationResult struct {
	FeatureKey string `json:"featureKey"`
	Enabled    bool   `json:"enabled"`
	Reason     Reason `json:"reason"`
}

// Disabled returns the result used when a feature or flag is absent.
func Disabled(featureKey string) EvaluationResult {
	return EvaluationResult{FeatureKey: featureKey, Reason: ReasonFlagDisabled}
}

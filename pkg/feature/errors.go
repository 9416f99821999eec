package feature

import "errors"

var (
	// ErrInvalidEnvironment indicates a value outside DEV, STAGING and PROD.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidStrategyType indicates an unknown strategy type.
	ErrInvalidStrategyType = errors.New("invalid strategy type")

	// ErrInvalidStrategyConfig indicates a strategy config whose shape or
	// values do not match its strategy type.
	ErrInvalidStrategyConfig = errors.New("invalid strategy config")
)

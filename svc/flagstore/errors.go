package flagstore

import "errors"

var (
	// ErrNotFound is returned when a scoped record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a uniqueness constraint is violated:
	// tenant slug, feature key within a tenant, or flag environment within a
	// feature.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrVersionMismatch is returned by UpdateFlag when the stored version
	// differs from the expected one.
	ErrVersionMismatch = errors.New("flag version mismatch")
)

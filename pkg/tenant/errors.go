package tenant

import "errors"

// Resolution errors reported by Middleware and Provider implementations.
var (
	ErrTenantNotFound    = errors.New("tenant: not found")
	ErrInvalidIdentifier = errors.New("tenant: identifier is neither a UUID nor a slug")
	ErrNoTenantInContext = errors.New("tenant: missing from request context")
)

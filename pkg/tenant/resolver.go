package tenant

import "net/http"

// DefaultHeader carries the tenant identifier.
const DefaultHeader = "X-Tenant-ID"

// Resolver extracts a tenant identifier from a request. An empty identifier
// means the request names no tenant.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// HeaderResolver extracts tenant identifier from HTTP header.
type HeaderResolver struct {
	HeaderName string
}

// NewHeaderResolver creates a header resolver, defaulting to X-Tenant-ID.
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return &HeaderResolver{HeaderName: headerName}
}

func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	return req.Header.Get(r.HeaderName), nil
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// Package tenant carries the tenant of a request through context.Context and
// resolves it from incoming HTTP requests.
//
// Middleware reads an identifier with a Resolver (by default the X-Tenant-ID
// header), looks the tenant up through a Cache and then a Provider, and
// stores it in the request context. Handlers read it back with FromContext
// or IDFromContext. The cache is explicit and owned by the caller, so the
// service that updates tenants can evict stale entries through the same
// instance.
//
//	tenants := tenant.NewMemoryCache(1000, time.Minute)
//	r.Use(tenant.Middleware(tenant.NewHeaderResolver(""), provider, tenant.WithCache(tenants)))
package tenant

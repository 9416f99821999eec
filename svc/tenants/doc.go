// Package tenants manages tenants: their names, slugs and request quotas.
//
// The Service also implements tenant.Provider so the HTTP middleware can
// resolve the tenant of a request by UUID or slug. Updates and deletes evict
// the tenant from the resolver cache so quota changes apply at once.
package tenants

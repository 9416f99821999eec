// Package api exposes tenants, features, flags, evaluation, promotion and
// audit history over HTTP.
//
// Feature routes are tenant scoped: the tenant is resolved from the
// X-Tenant-ID header (UUID or slug) and its request quotas are enforced
// before any handler runs. X-Actor-ID names the caller recorded in audit
// entries; requests without it are attributed to the system actor.
//
// Single flags carry an ETag of the form "{id}-v{version}". GET honours
// If-None-Match with 304 and PATCH honours If-Match with 412 on a stale
// version.
package api

// Package audit records who changed what, with before and after snapshots.
//
// A Logger builds an Entry from the request context (actor, client address,
// user agent) and the EntryOption values passed to Log, then hands it to a
// Storage. Storage can be synchronous (MemoryStorage, a SQL table) or the
// AsyncWriter, which batches entries for a BatchWriter in the background.
//
//	auditLog := audit.NewLogger(storage)
//	err := auditLog.Log(ctx, audit.ActionUpdate,
//		audit.WithTenant(tenantID),
//		audit.WithEntity(audit.EntityFeatureFlag, flag.ID),
//		audit.WithBefore(before),
//		audit.WithAfter(flag),
//	)
//
// Audit writes are best-effort relative to the change they describe; callers
// log failures rather than roll back.
//
// Reader pages through stored entries for a tenant using Criteria filters.
package audit

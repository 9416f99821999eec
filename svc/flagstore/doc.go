// Package flagstore persists tenants, features and feature flags.
//
// Store is the contract used by the services. Every feature and flag
// operation is scoped by tenant ID: a record that exists under another tenant
// is reported as ErrNotFound. Two implementations are provided. MemoryStore
// keeps everything in process memory and returns copies. PostgresStore runs on
// a pgx pool against the schema in the embedded goose migrations (see
// Migrations).
//
// PostgresAuditStorage persists audit entries in the same database and
// implements audit.Storage, audit.BatchWriter and audit.Querier.
package flagstore

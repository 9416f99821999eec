// Package flags is the feature-flag service: evaluation, feature and flag
// management, and promotion of flag configuration between environments.
//
// Reads of single flags go through the cache and fall back to the store.
// Every write runs in the same order: validate, mutate the store, record an
// audit entry, invalidate the affected cache keys. Audit failures are logged
// and never fail the write.
//
// Evaluation never blocks a caller on a missing feature or flag: both
// evaluate to disabled with reason flag_disabled. Infrastructure errors are
// returned together with that same disabled result.
package flags

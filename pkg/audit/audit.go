package audit

import "context"

// Storage persists a single entry.
type Storage interface {
	Store(ctx context.Context, entry Entry) error
}

// BatchWriter persists many entries at once. Implementations must write all
// entries or none.
type BatchWriter interface {
	StoreBatch(ctx context.Context, entries []Entry) error
}

// Querier returns one page of entries matching criteria, newest first, and
// the total number of matches.
type Querier interface {
	Query(ctx context.Context, criteria Criteria) ([]Entry, int, error)
}

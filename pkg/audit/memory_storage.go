package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps entries in process memory. It implements Storage,
// BatchWriter and Querier.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, entry Entry) error {
	return s.StoreBatch(ctx, []Entry{entry})
}

func (s *MemoryStorage) StoreBatch(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, criteria Criteria) ([]Entry, int, error) {
	criteria = criteria.Normalize()

	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if criteria.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	// Newest first; insertion order breaks ties.
	slices.Reverse(matched)
	slices.SortStableFunc(matched, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	start := min(criteria.Offset(), total)
	end := min(start+criteria.Limit, total)
	return slices.Clone(matched[start:end]), total, nil
}

// Len returns the number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

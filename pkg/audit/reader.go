package audit

import "context"

// Page is one page of entries.
type Page struct {
	Entries []Entry `json:"data"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
}

// Reader serves paged queries over stored entries.
type Reader struct {
	querier Querier
}

// NewReader creates a new audit reader. Panics on nil querier.
func NewReader(q Querier) *Reader {
	if q == nil {
		panic("audit: querier cannot be nil")
	}
	return &Reader{querier: q}
}

// Find returns the page of entries selected by criteria, newest first.
func (r *Reader) Find(ctx context.Context, criteria Criteria) (Page, error) {
	criteria = criteria.Normalize()
	entries, total, err := r.querier.Query(ctx, criteria)
	if err != nil {
		return Page{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Total: total, Page: criteria.Page, Limit: criteria.Limit}, nil
}

// History returns the latest entries for one entity.
func (r *Reader) History(ctx context.Context, criteria Criteria, limit int) ([]Entry, error) {
	criteria.Page = 1
	criteria.Limit = limit
	page, err := r.Find(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}

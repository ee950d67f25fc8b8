package ledger

import "context"

// Reader provides read access to a storage backend without exposing the
// append surface. Hand one to code that renders history but must never
// write it.
type Reader struct {
	storage Storage
}

// NewReader creates a reader over the given storage.
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("ledger: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find returns entries matching the filters, most recent first.
func (r *Reader) Find(ctx context.Context, filters ...Filter) ([]Entry, error) {
	return r.storage.Query(ctx, buildCriteria(filters))
}

// Count returns the number of entries matching the filters.
func (r *Reader) Count(ctx context.Context, filters ...Filter) (int64, error) {
	return r.storage.Count(ctx, buildCriteria(filters))
}

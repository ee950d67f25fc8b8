package ledger

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// MemoryStorage is an in-memory Storage for tests, prototypes, and entities
// that are not persisted at all. It supports transactional scoping: appends
// made inside InTransaction are discarded when the unit of work fails.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry

	// txMu serializes units of work so a rollback cannot discard appends
	// that belong to a concurrent transaction.
	txMu sync.Mutex
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append stores one entry.
func (s *MemoryStorage) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	// Copy the metadata so later caller mutations cannot rewrite history.
	if entry.Metadata != nil {
		entry.Metadata = maps.Clone(entry.Metadata)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Query returns entries matching the criteria, most recent first.
func (s *MemoryStorage) Query(ctx context.Context, criteria Criteria) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Entry
	for _, e := range s.entries {
		if criteria.Matches(e) {
			result = append(result, e)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if criteria.Limit > 0 && len(result) > criteria.Limit {
		result = result[:criteria.Limit]
	}
	return result, nil
}

// Count returns the number of entries matching the criteria.
func (s *MemoryStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if criteria.Matches(e) {
			n++
		}
	}
	return n, nil
}

// InTransaction runs fn as a unit of work. If fn returns an error, every
// entry appended during the unit is discarded. Units of work are serialized.
func (s *MemoryStorage) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	mark := len(s.entries)
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.entries = s.entries[:mark]
		s.mu.Unlock()
		return err
	}
	return nil
}

// Len returns the total number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

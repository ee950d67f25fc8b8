package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage is the pluggable persistence backend for transition entries.
// Implementations must be safe for concurrent use. The interface is
// deliberately append-only: entries are never updated or deleted.
type Storage interface {
	// Append stores one entry.
	Append(ctx context.Context, entry Entry) error
	// Query returns entries matching the criteria, most recent first.
	Query(ctx context.Context, criteria Criteria) ([]Entry, error)
	// Count returns the number of entries matching the criteria.
	Count(ctx context.Context, criteria Criteria) (int64, error)
}

// Transactional is implemented by storages that can scope a unit of work.
// Appends performed inside fn are discarded if fn returns an error.
type Transactional interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Ledger is a handle to the transition history stored in one table.
// Several entity types may share a single ledger; obtain shared handles
// through a Registry so each table gets exactly one.
type Ledger struct {
	table   string
	storage Storage
}

// New creates a ledger bound to the given table name.
func New(table string, storage Storage) (*Ledger, error) {
	if table == "" {
		return nil, ErrEmptyTableName
	}
	if storage == nil {
		return nil, ErrStorageNotAvailable
	}
	return &Ledger{table: table, storage: storage}, nil
}

// Table returns the backing table name.
func (l *Ledger) Table() string {
	return l.table
}

// Storage returns the underlying storage backend.
func (l *Ledger) Storage() Storage {
	return l.storage
}

// Record appends one transition entry. The entry is assigned a fresh ID and
// the current timestamp; it is immutable once stored.
func (l *Ledger) Record(ctx context.Context, ownerType, ownerID, event, fromState, toState string, metadata map[string]any) error {
	entry := Entry{
		ID:        uuid.New().String(),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Event:     event,
		FromState: fromState,
		ToState:   toState,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	if err := entry.Validate(); err != nil {
		return err
	}

	return l.storage.Append(ctx, entry)
}

// Find returns entries matching the filters, most recent first.
func (l *Ledger) Find(ctx context.Context, filters ...Filter) ([]Entry, error) {
	return l.storage.Query(ctx, buildCriteria(filters))
}

// Count returns the number of entries matching the filters.
func (l *Ledger) Count(ctx context.Context, filters ...Filter) (int64, error) {
	return l.storage.Count(ctx, buildCriteria(filters))
}

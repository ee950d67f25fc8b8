package ledger

import "sync"

// Factory constructs the storage backend for a table on first use.
type Factory func(table string) Storage

// Registry hands out one Ledger per table name. Unrelated entity types are
// often configured concurrently at process startup and may point at the
// same shared table; the registry guarantees the backing storage for a
// table is constructed exactly once no matter how many goroutines race on
// first use.
type Registry struct {
	factory Factory

	mu      sync.RWMutex
	ledgers map[string]*Ledger
	onces   map[string]*sync.Once
}

// NewRegistry creates a registry that builds storage backends with the
// given factory.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		panic("ledger: factory cannot be nil")
	}
	return &Registry{
		factory: factory,
		ledgers: make(map[string]*Ledger),
		onces:   make(map[string]*sync.Once),
	}
}

// ForTable returns the ledger for the given table, creating it on first
// use. Concurrent callers for the same table all receive the same handle.
func (r *Registry) ForTable(table string) (*Ledger, error) {
	if table == "" {
		return nil, ErrEmptyTableName
	}

	r.mu.RLock()
	l, ok := r.ledgers[table]
	r.mu.RUnlock()
	if ok {
		return l, nil
	}

	// Per-table Once so a slow factory for one table does not block
	// first use of another.
	r.mu.Lock()
	once, ok := r.onces[table]
	if !ok {
		once = new(sync.Once)
		r.onces[table] = once
	}
	r.mu.Unlock()

	once.Do(func() {
		created := &Ledger{table: table, storage: r.factory(table)}
		r.mu.Lock()
		r.ledgers[table] = created
		r.mu.Unlock()
	})

	r.mu.RLock()
	l = r.ledgers[table]
	r.mu.RUnlock()
	return l, nil
}

// Tables returns the table names the registry has created ledgers for.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]string, 0, len(r.ledgers))
	for name := range r.ledgers {
		tables = append(tables, name)
	}
	return tables
}

// DefaultRegistry backs every table with an in-memory storage. It is the
// registry machines fall back to when no ledger is configured explicitly,
// which keeps unsaved prototypes and tests working out of the box.
var DefaultRegistry = NewRegistry(func(string) Storage {
	return NewMemoryStorage()
})

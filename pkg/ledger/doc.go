// Package ledger stores the transition history of stateable entities as an
// append-only audit trail. Each successful state transition is recorded as
// an immutable Entry carrying the owner reference, the event, the from and
// to states, free-form metadata, and a timestamp.
//
// # Architecture
//
// The package separates concerns the same way the rest of the library does:
//
//   - Storage – pluggable append/query backend (in-memory, PostgreSQL, MongoDB)
//   - Ledger – a handle binding a table name to a storage backend
//   - Reader – query-only access for code that must never write history
//   - Registry – concurrency-safe get-or-create of one Ledger per table name
//
// Several unrelated entity types commonly share a single history table.
// They are often configured concurrently at process startup, so Registry
// guarantees the backing storage for a table is constructed exactly once;
// every caller receives the same handle.
//
// # Usage
//
//	store := ledger.NewMemoryStorage()
//	l, err := ledger.New("transitions", store)
//	if err != nil { ... }
//
//	err = l.Record(ctx, "Article", "42", "publish", "draft", "published", nil)
//
//	entries, err := l.Find(ctx,
//	    ledger.ForOwner("Article", "42"),
//	    ledger.Recent(24*time.Hour),
//	)
//
// Filters compose freely: ForOwnerType, ByEvent, FromState, ToState,
// Recent, Between, and WithLimit each tighten the query. Results are always
// ordered most recent first.
//
// # Shared tables
//
//	reg := ledger.NewRegistry(func(table string) ledger.Storage {
//	    s, _ := ledger.NewPostgresStorage(pool, table)
//	    return s
//	})
//	articles, _ := reg.ForTable("transitions")
//	orders, _ := reg.ForTable("transitions") // same handle
//
// # Transactions
//
// Storages implementing Transactional scope appends to a unit of work:
// PostgresStorage opens a real database transaction and carries it in the
// context (see TxFromContext), while MemoryStorage snapshots and restores
// its entry slice. The stateable engine uses this to commit the state
// mutation and the history row atomically.
package ledger

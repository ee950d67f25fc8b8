package stateable

import "context"

// State is a named, finite condition an entity can occupy.
type State string

func (s State) Name() string { return string(s) }

// Event names an operation moving an entity between states.
type Event string

func (e Event) Name() string { return string(e) }

// Entity is the minimal surface the engine needs from a host record: an
// identity for the history ledger and read/write access to the persisted
// state attribute. The engine never touches any other attribute.
type Entity interface {
	EntityID() string
	State() string
	SetState(state string)
}

// Conditioner exposes named boolean conditions for GuardMethod guards.
// The second return value reports whether the name is known; an unknown
// name is a programmer error, surfaced distinctly from a condition that
// evaluates to false.
type Conditioner interface {
	Condition(name string) (func() bool, bool)
}

// Predicater exposes named status/permission predicates for GuardIf
// guards. Kept separate from Conditioner because predicates are typically
// shared with UI-facing checks and declared elsewhere on the entity.
type Predicater interface {
	Predicate(name string) (func() bool, bool)
}

// MethodCallbacker exposes named callbacks for BeforeMethod and
// AfterMethod declarations.
type MethodCallbacker interface {
	Callback(name string) (func(ctx context.Context) error, bool)
}

// Persister is the host persistence layer. Save writes the mutated entity;
// InTransaction scopes a unit of work so the state mutation and the ledger
// append commit or roll back together.
type Persister interface {
	Save(ctx context.Context, e Entity) error
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// noopPersister backs entities that live only in memory. Save does nothing
// and the transaction is just the function call itself.
type noopPersister struct{}

func (noopPersister) Save(ctx context.Context, e Entity) error { return nil }

func (noopPersister) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// storagePersister delegates transaction scoping to a transactional ledger
// storage while leaving entity writes to the host. Used as the default when
// no Persister is configured but the ledger storage can scope a unit of
// work, so history appends still roll back on failure.
type storagePersister struct {
	tx interface {
		InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	}
}

func (storagePersister) Save(ctx context.Context, e Entity) error { return nil }

func (p storagePersister) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.tx.InTransaction(ctx, fn)
}

// Package stateable attaches a guarded finite-state transition engine to
// persisted business entities. An entity type declares its states,
// transitions between them, and ordered guard/validation/callback chains;
// the engine then drives atomic, auditable state changes with a persistent
// transition ledger.
//
// # Two-phase lifecycle
//
// Configuration runs once through functional options and freezes into an
// immutable Machine:
//
//	machine := stateable.MustNew("Article",
//	    stateable.WithInitialState("draft"),
//	    stateable.WithState("published"),
//	    stateable.WithTransition("publish", stateable.From("draft"), "published",
//	        stateable.GuardMethod("title_present"),
//	        stateable.Validate(func(ctx context.Context, e stateable.Entity, errs *stateable.Errors) {
//	            if e.(*Article).Content == "" {
//	                errs.Add("content", "cannot be blank")
//	            }
//	        }),
//	    ),
//	)
//
// Malformed declarations – duplicate states or events, a second initial
// state, transitions referencing undeclared states, empty guard or callback
// bodies – yield a ConfigurationError and no machine at all. Definitions
// may also be loaded from YAML documents via FromYAML.
//
// # Entities
//
// The engine needs only the Entity interface from a host record: an ID for
// the ledger and read/write access to the state attribute. Optional
// interfaces extend what declarations can reference by name: Conditioner
// for GuardMethod, Predicater for GuardIf, and MethodCallbacker for
// BeforeMethod and AfterMethod. A referenced name the entity does not know
// is a programmer error (GuardNotFoundError, CallbackNotFoundError),
// deliberately distinct from a guard that merely returns false.
//
// # Firing transitions
//
//	err := machine.Fire(ctx, article, "publish",
//	    stateable.WithMetadata("actor", userID),
//	)
//
// An attempt runs guards (ordered, first failure wins), then validations
// (all of them, collecting every message), then opens one transaction for
// before-callbacks, the around-composed unit of work (state mutation,
// Persister.Save, ledger append), and after-callbacks. Any failure aborts
// with the entity state unchanged and no ledger row. Around callbacks nest
// first-registered-outermost and receive a continuation; not invoking it
// silently skips the inner phases, state mutation included.
//
// Machine.Can is the advisory counterpart: guard-only and error-swallowing,
// safe for driving UI affordances.
//
// # Errors
//
// Business failures are typed and carry their context: an
// InvalidTransitionError names the state and event, a CheckFailedError
// names the failing guard, a ValidationFailedError carries the full message
// collection. Helper predicates (IsCheckFailedError and friends) classify
// them. Errors raised inside guard or callback bodies propagate to the
// caller unchanged.
//
// # History
//
// Every successful transition appends one immutable entry to a ledger (see
// pkg/ledger). Machines share ledgers by table name through a registry, so
// unrelated entity types can write one audit table. Machine.History reads
// an entity's trail most recent first, and WithHistoryInExport opts the
// trail into Machine.Export output.
//
// # Concurrency
//
// A Machine is immutable and safe for concurrent use. The engine provides
// no locking across concurrent attempts on the same entity instance; hosts
// that need it must serialize externally.
package stateable

package stateable

import (
	"log/slog"
	"slices"

	"github.com/dmitrymomot/stateable/pkg/ledger"
)

// DefaultLedgerTable is the table machines record history to unless
// WithLedgerTable or WithLedger overrides it. Unrelated entity types
// sharing the default name share one ledger.
const DefaultLedgerTable = "transitions"

// transition is one compiled transition definition: an event moving the
// entity from any of the origin states to the destination, with its ordered
// guard, validation, and callback chains.
type transition struct {
	event       Event
	from        []State
	to          State
	guards      []guard
	validations []ValidationFunc
	befores     []callback
	arounds     []AroundFunc
	afters      []callback
}

func (t *transition) allowsFrom(s State) bool {
	return slices.Contains(t.from, s)
}

// builder accumulates configuration while options run. It is the mutable
// half of the two-phase lifecycle; New freezes it into a Machine and no
// mutation path exists afterwards.
type builder struct {
	ownerType   string
	states      []State
	initial     State
	hasInitial  bool
	transitions map[Event]*transition
	order       []Event

	ledgerTable     string
	ledgerRegistry  *ledger.Registry
	ledgerInstance  *ledger.Ledger
	persister       Persister
	log             *slog.Logger
	historyInExport bool

	err error
}

func (b *builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = newConfigError(b.ownerType, format, args...)
	}
}

func (b *builder) hasState(s State) bool {
	return slices.Contains(b.states, s)
}

// Option configures a machine during construction.
type Option func(*builder)

// WithState declares a state.
func WithState(name State) Option {
	return func(b *builder) {
		b.declareState(name, false)
	}
}

// WithStates declares several states at once.
func WithStates(names ...State) Option {
	return func(b *builder) {
		for _, name := range names {
			b.declareState(name, false)
		}
	}
}

// WithInitialState declares a state and marks it initial. Exactly one state
// per machine may be initial.
func WithInitialState(name State) Option {
	return func(b *builder) {
		b.declareState(name, true)
	}
}

func (b *builder) declareState(name State, initial bool) {
	if name == "" {
		b.fail("state name cannot be empty")
		return
	}
	if b.hasState(name) {
		b.fail("state '%s' is already declared", name)
		return
	}
	if initial && b.hasInitial {
		b.fail("initial state is already set to '%s', cannot set '%s'", b.initial, name)
		return
	}

	b.states = append(b.states, name)
	if initial {
		b.initial = name
		b.hasInitial = true
	}
}

// From lists the permissible origin states of a transition.
func From(states ...State) []State {
	return states
}

// WithTransition declares a transition: an event moving the entity from any
// of the origin states to the destination. Guard, validation, and callback
// declarations attach through transition options and run in declaration
// order.
func WithTransition(event Event, from []State, to State, opts ...TransitionOption) Option {
	return func(b *builder) {
		if event == "" {
			b.fail("transition event name cannot be empty")
			return
		}
		if _, exists := b.transitions[event]; exists {
			b.fail("transition '%s' is already declared", event)
			return
		}
		if len(from) == 0 {
			b.fail("transition '%s' must declare at least one origin state", event)
			return
		}
		for _, s := range from {
			if !b.hasState(s) {
				b.fail("transition '%s' references undeclared state '%s'", event, s)
				return
			}
		}
		if !b.hasState(to) {
			b.fail("transition '%s' references undeclared state '%s'", event, to)
			return
		}

		t := &transition{event: event, from: slices.Clone(from), to: to}
		for _, opt := range opts {
			if err := opt(t); err != nil {
				b.fail("transition '%s': %s", event, err.Error())
				return
			}
		}

		b.transitions[event] = t
		b.order = append(b.order, event)
	}
}

// WithLedgerTable overrides the table the machine records history to. The
// ledger is resolved through the machine's registry, so machines naming the
// same table share one ledger.
func WithLedgerTable(name string) Option {
	return func(b *builder) {
		if name == "" {
			b.fail("ledger table name cannot be empty")
			return
		}
		b.ledgerTable = name
	}
}

// WithLedger binds the machine to an explicit ledger, bypassing the
// registry.
func WithLedger(l *ledger.Ledger) Option {
	return func(b *builder) {
		if l == nil {
			b.fail("ledger cannot be nil")
			return
		}
		b.ledgerInstance = l
	}
}

// WithLedgerRegistry sets the registry ledger tables are resolved through.
// Defaults to ledger.DefaultRegistry (in-memory storage per table).
func WithLedgerRegistry(reg *ledger.Registry) Option {
	return func(b *builder) {
		if reg == nil {
			b.fail("ledger registry cannot be nil")
			return
		}
		b.ledgerRegistry = reg
	}
}

// WithPersister sets the host persistence layer. When unset the machine
// falls back to the ledger storage's transaction scoping if it offers any,
// with a no-op entity save.
func WithPersister(p Persister) Option {
	return func(b *builder) {
		if p == nil {
			b.fail("persister cannot be nil")
			return
		}
		b.persister = p
	}
}

// WithLogger attaches a structured logger. Successful transitions are
// logged at debug level; the advisory Can path never logs.
func WithLogger(log *slog.Logger) Option {
	return func(b *builder) {
		b.log = log
	}
}

// WithHistoryInExport opts the transition history into Export output.
func WithHistoryInExport() Option {
	return func(b *builder) {
		b.historyInExport = true
	}
}

// TransitionOption attaches guards, validations, and callbacks to a
// transition declaration.
type TransitionOption func(*transition) error

// Guard adds an inline guard. All guards must pass for the transition to
// proceed; evaluation order is declaration order and the first failure
// wins.
func Guard(fn GuardFunc) TransitionOption {
	return func(t *transition) error {
		if fn == nil {
			return errEmptyBody("guard")
		}
		t.guards = append(t.guards, guard{kind: guardInline, fn: fn})
		return nil
	}
}

// GuardMethod adds a guard resolved by name through the entity's
// Conditioner at call time.
func GuardMethod(name string) TransitionOption {
	return func(t *transition) error {
		if name == "" {
			return errEmptyBody("guard")
		}
		t.guards = append(t.guards, guard{kind: guardCondition, name: name})
		return nil
	}
}

// GuardIf adds a guard resolved by name through the entity's Predicater at
// call time, for reusing status/permission predicates as transition
// pre-conditions.
func GuardIf(name string) TransitionOption {
	return func(t *transition) error {
		if name == "" {
			return errEmptyBody("guard")
		}
		t.guards = append(t.guards, guard{kind: guardPredicate, name: name})
		return nil
	}
}

// Validate adds a validation. Every validation runs on each attempt, even
// after earlier ones reported failures, so the caller sees the full set of
// messages.
func Validate(fn ValidationFunc) TransitionOption {
	return func(t *transition) error {
		if fn == nil {
			return errEmptyBody("validation")
		}
		t.validations = append(t.validations, fn)
		return nil
	}
}

// Before adds an inline before-callback, run inside the transaction before
// the state mutation.
func Before(fn CallbackFunc) TransitionOption {
	return func(t *transition) error {
		if fn == nil {
			return errEmptyBody("before callback")
		}
		t.befores = append(t.befores, callback{fn: fn})
		return nil
	}
}

// BeforeMethod adds a named before-callback resolved through the entity's
// MethodCallbacker at call time.
func BeforeMethod(name string) TransitionOption {
	return func(t *transition) error {
		if name == "" {
			return errEmptyBody("before callback")
		}
		t.befores = append(t.befores, callback{name: name})
		return nil
	}
}

// After adds an inline after-callback, run inside the transaction after the
// state mutation and ledger write.
func After(fn CallbackFunc) TransitionOption {
	return func(t *transition) error {
		if fn == nil {
			return errEmptyBody("after callback")
		}
		t.afters = append(t.afters, callback{fn: fn})
		return nil
	}
}

// AfterMethod adds a named after-callback resolved through the entity's
// MethodCallbacker at call time.
func AfterMethod(name string) TransitionOption {
	return func(t *transition) error {
		if name == "" {
			return errEmptyBody("after callback")
		}
		t.afters = append(t.afters, callback{name: name})
		return nil
	}
}

// Around adds an around-callback. The first registered callback is the
// outermost wrapper; each receives a continuation it must invoke to let the
// inner phases run.
func Around(fn AroundFunc) TransitionOption {
	return func(t *transition) error {
		if fn == nil {
			return errEmptyBody("around callback")
		}
		t.arounds = append(t.arounds, fn)
		return nil
	}
}

type bodyError string

func (e bodyError) Error() string { return string(e) }

func errEmptyBody(kind string) error {
	return bodyError(kind + " declared with no executable body")
}

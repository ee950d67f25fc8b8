package stateable

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmitrymomot/stateable/pkg/ledger"
)

// Machine is the frozen transition graph for one entity type plus the
// runtime that drives guarded, audited state changes. Machines are
// immutable after New returns and safe for concurrent use; they hold no
// per-entity state.
type Machine struct {
	ownerType   string
	states      []State
	initial     State
	transitions map[Event]*transition
	order       []Event

	ledger          *ledger.Ledger
	persister       Persister
	log             *slog.Logger
	historyInExport bool
}

// New compiles the declarations into an immutable machine for the given
// owner type. The owner type names the entity in ledger rows and error
// messages. Any malformed declaration yields a ConfigurationError and no
// machine.
func New(ownerType string, opts ...Option) (*Machine, error) {
	if ownerType == "" {
		return nil, newConfigError("<unknown>", "owner type cannot be empty")
	}

	b := &builder{
		ownerType:   ownerType,
		transitions: make(map[Event]*transition),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
		if b.err != nil {
			return nil, b.err
		}
	}

	if len(b.states) == 0 {
		return nil, newConfigError(ownerType, "at least one state must be declared")
	}
	if !b.hasInitial {
		return nil, newConfigError(ownerType, "no initial state declared")
	}

	l := b.ledgerInstance
	if l == nil {
		table := b.ledgerTable
		if table == "" {
			table = DefaultLedgerTable
		}
		reg := b.ledgerRegistry
		if reg == nil {
			reg = ledger.DefaultRegistry
		}
		var err error
		l, err = reg.ForTable(table)
		if err != nil {
			return nil, newConfigError(ownerType, "resolve ledger: %s", err.Error())
		}
	}

	p := b.persister
	if p == nil {
		if tx, ok := l.Storage().(ledger.Transactional); ok {
			p = storagePersister{tx: tx}
		} else {
			p = noopPersister{}
		}
	}

	return &Machine{
		ownerType:       ownerType,
		states:          b.states,
		initial:         b.initial,
		transitions:     b.transitions,
		order:           b.order,
		ledger:          l,
		persister:       p,
		log:             b.log,
		historyInExport: b.historyInExport,
	}, nil
}

// MustNew is New panicking on configuration errors, for machines declared
// at package init where a bad definition should prevent startup.
func MustNew(ownerType string, opts ...Option) *Machine {
	m, err := New(ownerType, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// OwnerType returns the entity type name the machine was configured for.
func (m *Machine) OwnerType() string {
	if m == nil {
		return ""
	}
	return m.ownerType
}

// States returns the declared states in declaration order.
func (m *Machine) States() []State {
	if m == nil {
		return nil
	}
	return slices.Clone(m.states)
}

// Events returns the declared transition events in declaration order.
func (m *Machine) Events() []Event {
	if m == nil {
		return nil
	}
	return slices.Clone(m.order)
}

// InitialState returns the state written on entity creation.
func (m *Machine) InitialState() State {
	if m == nil {
		return ""
	}
	return m.initial
}

// Ledger returns the ledger the machine records history to.
func (m *Machine) Ledger() *ledger.Ledger {
	if m == nil {
		return nil
	}
	return m.ledger
}

func (m *Machine) enabled() bool {
	return m != nil && len(m.states) > 0
}

// Init writes the initial state to a freshly created entity. The attribute
// is only written when empty, so a column default set by the host schema
// wins.
func (m *Machine) Init(e Entity) error {
	if !m.enabled() {
		return ErrNotEnabled
	}
	if e == nil {
		return ErrNilEntity
	}
	if e.State() == "" {
		e.SetState(string(m.initial))
	}
	return nil
}

// Current returns the entity's current state. An empty attribute reads as
// the initial state, matching what Init would write.
func (m *Machine) Current(e Entity) State {
	if !m.enabled() || e == nil {
		return ""
	}
	if s := e.State(); s != "" {
		return State(s)
	}
	return m.initial
}

// Is reports whether the entity currently occupies the given state.
func (m *Machine) Is(e Entity, s State) bool {
	return m.enabled() && e != nil && m.Current(e) == s
}

// Can reports whether the event could fire right now: a transition is
// declared for the current state and every guard passes. It is advisory
// and guard-only; validations do not run, and guard errors or missing
// named guards read as false so UI-facing checks stay safe.
func (m *Machine) Can(ctx context.Context, e Entity, event Event) bool {
	if !m.enabled() || e == nil {
		return false
	}

	t, ok := m.transitions[event]
	if !ok || !t.allowsFrom(m.Current(e)) {
		return false
	}

	for _, g := range t.guards {
		ok, err := g.check(ctx, e)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// FireOption configures a single transition attempt.
type FireOption func(*fireConfig)

type fireConfig struct {
	metadata map[string]any
}

// WithMetadata attaches one metadata key to the ledger entry this attempt
// records.
func WithMetadata(key string, value any) FireOption {
	return func(c *fireConfig) {
		if c.metadata == nil {
			c.metadata = make(map[string]any)
		}
		c.metadata[key] = value
	}
}

// WithMetadataMap attaches a whole metadata map to the ledger entry.
func WithMetadataMap(metadata map[string]any) FireOption {
	return func(c *fireConfig) {
		if len(metadata) == 0 {
			return
		}
		if c.metadata == nil {
			c.metadata = make(map[string]any, len(metadata))
		}
		maps.Copy(c.metadata, metadata)
	}
}

// Fire attempts the transition the event names. The full sequence for a
// successful attempt:
//
//  1. Resolve the transition for (current state, event), else
//     InvalidTransitionError.
//  2. Guards, in order, first failure wins — outside any transaction.
//  3. Validations, all of them, against a fresh error collection.
//  4. In one transaction: before-callbacks, then the around-composed unit
//     of work (state mutation, Persister.Save, ledger append), then
//     after-callbacks.
//
// Any failure aborts with the entity state observably unchanged and no
// ledger row. Errors raised inside guard or callback bodies propagate
// unchanged; they are never wrapped.
func (m *Machine) Fire(ctx context.Context, e Entity, event Event, opts ...FireOption) error {
	if !m.enabled() {
		return ErrNotEnabled
	}
	if e == nil {
		return ErrNilEntity
	}

	from := m.Current(e)
	t, ok := m.transitions[event]
	if !ok || !t.allowsFrom(from) {
		return &InvalidTransitionError{OwnerType: m.ownerType, State: from, Event: event}
	}

	if err := checkGuards(ctx, e, t); err != nil {
		return err
	}

	errs := NewErrors()
	for _, v := range t.validations {
		v(ctx, e, errs)
	}
	if !errs.IsEmpty() {
		return &ValidationFailedError{Event: event, Errors: errs}
	}

	var cfg fireConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	err := m.persister.InTransaction(ctx, func(ctx context.Context) error {
		for _, cb := range t.befores {
			if err := cb.run(ctx, e); err != nil {
				return err
			}
		}

		unit := func(ctx context.Context) error {
			e.SetState(string(t.to))
			if err := m.persister.Save(ctx, e); err != nil {
				return err
			}
			return m.ledger.Record(ctx, m.ownerType, e.EntityID(), string(event), string(from), string(t.to), cfg.metadata)
		}

		if err := composeAround(t.arounds, e, unit)(ctx); err != nil {
			return err
		}

		for _, cb := range t.afters {
			if err := cb.run(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The database transaction rolled back; bring the in-memory
		// attribute back in line with it.
		if e.State() != string(from) {
			e.SetState(string(from))
		}
		return err
	}

	if m.log != nil {
		m.log.DebugContext(ctx, "state transition",
			slog.String("owner_type", m.ownerType),
			slog.String("owner_id", e.EntityID()),
			slog.String("event", string(event)),
			slog.String("from", string(from)),
			slog.String("to", string(t.to)),
		)
	}
	return nil
}

// History returns the entity's transition history, most recent first.
func (m *Machine) History(ctx context.Context, e Entity, filters ...ledger.Filter) ([]ledger.Entry, error) {
	if !m.enabled() {
		return nil, ErrNotEnabled
	}
	if e == nil {
		return nil, ErrNilEntity
	}

	filters = append([]ledger.Filter{ledger.ForOwner(m.ownerType, e.EntityID())}, filters...)
	return m.ledger.Find(ctx, filters...)
}

// Export returns the entity's engine-owned representation for embedding in
// a serialized payload: the current state, plus the transition history when
// the machine was configured with WithHistoryInExport.
func (m *Machine) Export(ctx context.Context, e Entity) (map[string]any, error) {
	if !m.enabled() {
		return nil, ErrNotEnabled
	}
	if e == nil {
		return nil, ErrNilEntity
	}

	out := map[string]any{
		"state": string(m.Current(e)),
	}
	if !m.historyInExport {
		return out, nil
	}

	entries, err := m.History(ctx, e)
	if err != nil {
		return nil, err
	}

	history := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		h := map[string]any{
			"event": entry.Event,
			"from":  entry.FromState,
			"to":    entry.ToState,
			"at":    entry.CreatedAt,
		}
		if len(entry.Metadata) > 0 {
			h["metadata"] = entry.Metadata
		}
		history = append(history, h)
	}
	out["transition_history"] = history
	return out, nil
}

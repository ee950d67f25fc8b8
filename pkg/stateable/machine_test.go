package stateable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateable/pkg/ledger"
	"github.com/dmitrymomot/stateable/pkg/stateable"
)

// article is a minimal host entity implementing the optional named-guard
// and named-callback interfaces.
type article struct {
	id      string
	state   string
	Title   string
	Content string

	namedCallbackRan bool
}

func (a *article) EntityID() string  { return a.id }
func (a *article) State() string     { return a.state }
func (a *article) SetState(s string) { a.state = s }

func (a *article) Condition(name string) (func() bool, bool) {
	switch name {
	case "title_present":
		return func() bool { return a.Title != "" }, true
	default:
		return nil, false
	}
}

func (a *article) Predicate(name string) (func() bool, bool) {
	switch name {
	case "publishable":
		return func() bool { return a.Title != "" && a.Content != "" }, true
	default:
		return nil, false
	}
}

func (a *article) Callback(name string) (func(ctx context.Context) error, bool) {
	switch name {
	case "mark":
		return func(ctx context.Context) error {
			a.namedCallbackRan = true
			return nil
		}, true
	default:
		return nil, false
	}
}

func newTestLedger(t *testing.T) (*ledger.Ledger, *ledger.MemoryStorage) {
	t.Helper()
	store := ledger.NewMemoryStorage()
	l, err := ledger.New("transitions", store)
	require.NoError(t, err)
	return l, store
}

func publishMachine(t *testing.T, opts ...stateable.Option) (*stateable.Machine, *ledger.MemoryStorage) {
	t.Helper()
	l, store := newTestLedger(t)
	base := []stateable.Option{
		stateable.WithInitialState("draft"),
		stateable.WithState("published"),
		stateable.WithLedger(l),
	}
	m, err := stateable.New("Article", append(base, opts...)...)
	require.NoError(t, err)
	return m, store
}

func TestMachineFire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful transition records one ledger entry", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "1"}
		require.NoError(t, m.Init(a))
		assert.Equal(t, stateable.State("draft"), m.Current(a))

		require.NoError(t, m.Fire(ctx, a, "publish"))
		assert.Equal(t, stateable.State("published"), m.Current(a))
		assert.True(t, m.Is(a, "published"))

		entries, err := m.History(ctx, a)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "publish", entries[0].Event)
		assert.Equal(t, "draft", entries[0].FromState)
		assert.Equal(t, "published", entries[0].ToState)
		assert.Equal(t, "Article", entries[0].OwnerType)
		assert.Equal(t, "1", entries[0].OwnerID)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("repeat event raises InvalidTransitionError", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "2", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish"))

		err := m.Fire(ctx, a, "publish")
		require.Error(t, err)
		assert.True(t, stateable.IsInvalidTransitionError(err))
		assert.Equal(t, stateable.State("published"), m.Current(a))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("unknown event raises InvalidTransitionError", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "3", state: "draft"}
		err := m.Fire(ctx, a, "archive")
		assert.True(t, stateable.IsInvalidTransitionError(err))
	})

	t.Run("false guard raises CheckFailedError and leaves state", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardMethod("title_present"),
			),
		)

		a := &article{id: "4", state: "draft"} // blank title
		err := m.Fire(ctx, a, "publish")
		require.Error(t, err)
		assert.True(t, stateable.IsCheckFailedError(err))
		assert.Contains(t, err.Error(), "title_present")
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("guard short-circuits on first failure", func(t *testing.T) {
		t.Parallel()
		var secondGuardCalls int
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Guard(func(ctx context.Context, e stateable.Entity) (bool, error) {
					return false, nil
				}),
				stateable.Guard(func(ctx context.Context, e stateable.Entity) (bool, error) {
					secondGuardCalls++
					return true, nil
				}),
			),
		)

		a := &article{id: "5", state: "draft", Title: "t"}
		err := m.Fire(ctx, a, "publish")
		assert.True(t, stateable.IsCheckFailedError(err))
		assert.Zero(t, secondGuardCalls)
	})

	t.Run("guard error propagates unchanged on Fire", func(t *testing.T) {
		t.Parallel()
		guardErr := errors.New("backend down")
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Guard(func(ctx context.Context, e stateable.Entity) (bool, error) {
					return false, guardErr
				}),
			),
		)

		a := &article{id: "6", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		assert.ErrorIs(t, err, guardErr)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("missing named guard raises GuardNotFoundError on Fire", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardMethod("no_such_condition"),
			),
		)

		a := &article{id: "7", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		assert.True(t, stateable.IsGuardNotFoundError(err))
		assert.False(t, stateable.IsCheckFailedError(err))
	})

	t.Run("predicate guard via GuardIf", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardIf("publishable"),
			),
		)

		blocked := &article{id: "8", state: "draft", Title: "t"} // blank content
		assert.True(t, stateable.IsCheckFailedError(m.Fire(ctx, blocked, "publish")))

		ok := &article{id: "9", state: "draft", Title: "t", Content: "c"}
		assert.NoError(t, m.Fire(ctx, ok, "publish"))
	})

	t.Run("validations accumulate all messages", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Validate(func(ctx context.Context, e stateable.Entity, errs *stateable.Errors) {
					if e.(*article).Content == "" {
						errs.Add("content", "cannot be blank")
					}
				}),
				stateable.Validate(func(ctx context.Context, e stateable.Entity, errs *stateable.Errors) {
					if e.(*article).Title == "" {
						errs.Add("title", "cannot be blank")
					}
				}),
			),
		)

		a := &article{id: "10", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		require.Error(t, err)
		require.True(t, stateable.IsValidationFailedError(err))

		var vErr *stateable.ValidationFailedError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, 2, vErr.Errors.Len())
		assert.True(t, vErr.Errors.Has("content"))
		assert.True(t, vErr.Errors.Has("title"))
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("validation state does not leak between attempts", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Validate(func(ctx context.Context, e stateable.Entity, errs *stateable.Errors) {
					if e.(*article).Content == "" {
						errs.Add("content", "cannot be blank")
					}
				}),
			),
		)

		a := &article{id: "11", state: "draft"}
		require.Error(t, m.Fire(ctx, a, "publish"))

		a.Content = "c"
		assert.NoError(t, m.Fire(ctx, a, "publish"))
	})

	t.Run("before callback error aborts and propagates unchanged", func(t *testing.T) {
		t.Parallel()
		domainErr := errors.New("notify failed")
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Before(func(ctx context.Context, e stateable.Entity) error {
					return domainErr
				}),
			),
		)

		a := &article{id: "12", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		assert.Same(t, domainErr, err)
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("after callback error rolls back state and ledger", func(t *testing.T) {
		t.Parallel()
		afterErr := errors.New("index update failed")
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.After(func(ctx context.Context, e stateable.Entity) error {
					return afterErr
				}),
			),
		)

		a := &article{id: "13", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		assert.ErrorIs(t, err, afterErr)
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("named before and after callbacks", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.BeforeMethod("mark"),
			),
		)

		a := &article{id: "14", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish"))
		assert.True(t, a.namedCallbackRan)
	})

	t.Run("missing named callback raises CallbackNotFoundError", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.AfterMethod("no_such_callback"),
			),
		)

		a := &article{id: "15", state: "draft"}
		err := m.Fire(ctx, a, "publish")
		assert.True(t, stateable.IsCallbackNotFoundError(err))
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("around callbacks nest first-registered-outermost", func(t *testing.T) {
		t.Parallel()
		var order []string
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Around(func(ctx context.Context, e stateable.Entity, next func(ctx context.Context) error) error {
					order = append(order, "A-start")
					err := next(ctx)
					order = append(order, "A-end")
					return err
				}),
				stateable.Around(func(ctx context.Context, e stateable.Entity, next func(ctx context.Context) error) error {
					order = append(order, "B-start")
					err := next(ctx)
					order = append(order, "B-end")
					return err
				}),
			),
		)

		a := &article{id: "16", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish"))
		assert.Equal(t, []string{"A-start", "B-start", "B-end", "A-end"}, order)
	})

	t.Run("around callback may skip the inner unit silently", func(t *testing.T) {
		t.Parallel()
		m, store := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Around(func(ctx context.Context, e stateable.Entity, next func(ctx context.Context) error) error {
					return nil // never invokes next
				}),
			),
		)

		a := &article{id: "17", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish"))
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("metadata lands in the ledger entry", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "18", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish",
			stateable.WithMetadata("actor", "user-9"),
			stateable.WithMetadataMap(map[string]any{"reason": "scheduled"}),
		))

		entries, err := m.History(ctx, a)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "user-9", entries[0].Metadata["actor"])
		assert.Equal(t, "scheduled", entries[0].Metadata["reason"])
	})

	t.Run("history is most recent first", func(t *testing.T) {
		t.Parallel()
		l, _ := newTestLedger(t)
		m, err := stateable.New("Article",
			stateable.WithInitialState("draft"),
			stateable.WithStates("published", "archived"),
			stateable.WithLedger(l),
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
			stateable.WithTransition("archive", stateable.From("published"), "archived"),
		)
		require.NoError(t, err)

		a := &article{id: "19", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish"))
		require.NoError(t, m.Fire(ctx, a, "archive"))

		entries, err := m.History(ctx, a)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "archive", entries[0].Event)
		assert.Equal(t, "publish", entries[1].Event)
	})
}

func TestMachineCan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("true when a transition with passing guards exists", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardMethod("title_present"),
			),
		)

		a := &article{id: "20", state: "draft", Title: "t"}
		assert.True(t, m.Can(ctx, a, "publish"))
	})

	t.Run("false for failing guard, wrong state, unknown event", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardMethod("title_present"),
			),
		)

		assert.False(t, m.Can(ctx, &article{id: "21", state: "draft"}, "publish"))
		assert.False(t, m.Can(ctx, &article{id: "22", state: "published", Title: "t"}, "publish"))
		assert.False(t, m.Can(ctx, &article{id: "23", state: "draft", Title: "t"}, "archive"))
	})

	t.Run("swallows guard errors and missing named guards", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Guard(func(ctx context.Context, e stateable.Entity) (bool, error) {
					return true, errors.New("boom")
				}),
			),
		)
		assert.False(t, m.Can(ctx, &article{id: "24", state: "draft"}, "publish"))

		m2, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.GuardMethod("no_such_condition"),
			),
		)
		assert.False(t, m2.Can(ctx, &article{id: "25", state: "draft"}, "publish"))
	})

	t.Run("does not run validations", func(t *testing.T) {
		t.Parallel()
		var validationRuns int
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published",
				stateable.Validate(func(ctx context.Context, e stateable.Entity, errs *stateable.Errors) {
					validationRuns++
					errs.AddMessage("always fails")
				}),
			),
		)

		a := &article{id: "26", state: "draft"}
		assert.True(t, m.Can(ctx, a, "publish"))
		assert.Zero(t, validationRuns)
	})
}

func TestMachineLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nil machine reports not enabled", func(t *testing.T) {
		t.Parallel()
		var m *stateable.Machine
		a := &article{id: "27", state: "draft"}

		assert.ErrorIs(t, m.Fire(ctx, a, "publish"), stateable.ErrNotEnabled)
		assert.ErrorIs(t, m.Init(a), stateable.ErrNotEnabled)
		assert.False(t, m.Can(ctx, a, "publish"))
		_, err := m.History(ctx, a)
		assert.ErrorIs(t, err, stateable.ErrNotEnabled)
	})

	t.Run("nil entity is rejected", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)
		assert.ErrorIs(t, m.Fire(ctx, nil, "publish"), stateable.ErrNilEntity)
	})

	t.Run("Init respects an existing state attribute", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "28", state: "published"}
		require.NoError(t, m.Init(a))
		assert.Equal(t, "published", a.State())
	})

	t.Run("empty state attribute reads as initial", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "29"}
		assert.Equal(t, stateable.State("draft"), m.Current(a))
		assert.True(t, m.Can(ctx, a, "publish"))
	})

	t.Run("introspection", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		assert.Equal(t, "Article", m.OwnerType())
		assert.Equal(t, []stateable.State{"draft", "published"}, m.States())
		assert.Equal(t, []stateable.Event{"publish"}, m.Events())
		assert.Equal(t, stateable.State("draft"), m.InitialState())
		assert.Equal(t, "transitions", m.Ledger().Table())
	})
}

func TestMachineExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("state only by default", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "30", state: "draft"}
		out, err := m.Export(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "draft", out["state"])
		assert.NotContains(t, out, "transition_history")
	})

	t.Run("history included when opted in", func(t *testing.T) {
		t.Parallel()
		m, _ := publishMachine(t,
			stateable.WithHistoryInExport(),
			stateable.WithTransition("publish", stateable.From("draft"), "published"),
		)

		a := &article{id: "31", state: "draft"}
		require.NoError(t, m.Fire(ctx, a, "publish", stateable.WithMetadata("actor", "u1")))

		out, err := m.Export(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "published", out["state"])

		history, ok := out["transition_history"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, history, 1)
		assert.Equal(t, "publish", history[0]["event"])
		assert.Equal(t, "draft", history[0]["from"])
		assert.Equal(t, "published", history[0]["to"])
	})
}

// trackingPersister records engine interactions with the host layer.
type trackingPersister struct {
	store     *ledger.MemoryStorage
	saves     int
	savedInTx bool
	inTx      bool
}

func (p *trackingPersister) Save(ctx context.Context, e stateable.Entity) error {
	p.saves++
	p.savedInTx = p.inTx
	return nil
}

func (p *trackingPersister) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.inTx = true
	defer func() { p.inTx = false }()
	return p.store.InTransaction(ctx, fn)
}

func TestMachinePersister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := ledger.NewMemoryStorage()
	l, err := ledger.New("transitions", store)
	require.NoError(t, err)

	p := &trackingPersister{store: store}
	m, err := stateable.New("Article",
		stateable.WithInitialState("draft"),
		stateable.WithState("published"),
		stateable.WithLedger(l),
		stateable.WithPersister(p),
		stateable.WithTransition("publish", stateable.From("draft"), "published"),
	)
	require.NoError(t, err)

	a := &article{id: "32", state: "draft"}
	require.NoError(t, m.Fire(ctx, a, "publish"))
	assert.Equal(t, 1, p.saves)
	assert.True(t, p.savedInTx, "Save must run inside the transaction")
}

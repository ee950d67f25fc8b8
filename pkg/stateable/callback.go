package stateable

import "context"

// CallbackFunc is a before- or after-callback body.
type CallbackFunc func(ctx context.Context, e Entity) error

// AroundFunc wraps the inner phases of a transition. It must invoke next to
// proceed; not invoking it silently skips everything inside, including the
// state mutation and the ledger write. That is a capability, not an error:
// an around callback may decide the inner work should not happen.
type AroundFunc func(ctx context.Context, e Entity, next func(ctx context.Context) error) error

// callback is either an inline function or a named method resolved via
// MethodCallbacker at call time.
type callback struct {
	name string
	fn   CallbackFunc
}

func (c callback) run(ctx context.Context, e Entity) error {
	if c.fn != nil {
		return c.fn(ctx, e)
	}

	mc, ok := e.(MethodCallbacker)
	if !ok {
		return &CallbackNotFoundError{Name: c.name}
	}
	fn, ok := mc.Callback(c.name)
	if !ok {
		return &CallbackNotFoundError{Name: c.name}
	}
	return fn(ctx)
}

// composeAround nests the around callbacks over the innermost unit of work.
// The first registered callback becomes the outermost wrapper, so for
// callbacks [A, B] the observed order is A-start, B-start, unit, B-end,
// A-end.
func composeAround(arounds []AroundFunc, e Entity, unit func(ctx context.Context) error) func(ctx context.Context) error {
	next := unit
	for i := len(arounds) - 1; i >= 0; i-- {
		around := arounds[i]
		inner := next
		next = func(ctx context.Context) error {
			return around(ctx, e, inner)
		}
	}
	return next
}

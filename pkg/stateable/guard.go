package stateable

import (
	"context"
	"fmt"
)

// GuardFunc is an inline guard. Returning false blocks the transition;
// returning an error aborts the attempt before any transaction is opened.
type GuardFunc func(ctx context.Context, e Entity) (bool, error)

type guardKind int

const (
	guardInline guardKind = iota
	guardCondition
	guardPredicate
)

// guard is the tagged variant behind the three declaration forms: an inline
// function, a named condition resolved via Conditioner, or a named
// predicate resolved via Predicater.
type guard struct {
	kind guardKind
	name string
	fn   GuardFunc
}

// description names the guard in CheckFailedError messages. pos is the
// guard's declaration index, used for anonymous inline guards.
func (g guard) description(pos int) string {
	if g.name != "" {
		return fmt.Sprintf("guard '%s' returned false", g.name)
	}
	return fmt.Sprintf("guard #%d returned false", pos+1)
}

// check evaluates the guard against the entity. A missing named condition
// or predicate yields a GuardNotFoundError; callers decide whether to
// propagate it (transition attempt) or report false (advisory query).
func (g guard) check(ctx context.Context, e Entity) (bool, error) {
	switch g.kind {
	case guardCondition:
		c, ok := e.(Conditioner)
		if !ok {
			return false, &GuardNotFoundError{Name: g.name}
		}
		fn, ok := c.Condition(g.name)
		if !ok {
			return false, &GuardNotFoundError{Name: g.name}
		}
		return fn(), nil
	case guardPredicate:
		p, ok := e.(Predicater)
		if !ok {
			return false, &GuardNotFoundError{Name: g.name}
		}
		fn, ok := p.Predicate(g.name)
		if !ok {
			return false, &GuardNotFoundError{Name: g.name}
		}
		return fn(), nil
	default:
		return g.fn(ctx, e)
	}
}

// checkGuards runs the transition's guards in declaration order with
// first-failure-wins semantics. On failure it returns the engine error to
// surface: a CheckFailedError for a false guard, the guard's own error
// otherwise.
func checkGuards(ctx context.Context, e Entity, t *transition) error {
	for i, g := range t.guards {
		ok, err := g.check(ctx, e)
		if err != nil {
			return err
		}
		if !ok {
			return &CheckFailedError{Event: t.event, Description: g.description(i)}
		}
	}
	return nil
}

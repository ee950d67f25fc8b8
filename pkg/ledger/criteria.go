package ledger

import "time"

// Criteria describes which entries a query should return. The zero value
// matches everything. Results are always ordered most recent first.
type Criteria struct {
	OwnerType string
	OwnerID   string
	Event     string
	FromState string
	ToState   string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Filter narrows a query. Filters compose: each one tightens the criteria,
// so Find(ctx, ForOwnerType("Article"), ByEvent("publish")) returns only
// publish transitions of articles.
type Filter func(*Criteria)

// ForOwner restricts results to a single entity instance.
func ForOwner(ownerType, ownerID string) Filter {
	return func(c *Criteria) {
		c.OwnerType = ownerType
		c.OwnerID = ownerID
	}
}

// ForOwnerType restricts results to one entity type. Useful when several
// types share a ledger table.
func ForOwnerType(ownerType string) Filter {
	return func(c *Criteria) {
		c.OwnerType = ownerType
	}
}

// ByEvent restricts results to transitions triggered by the given event.
func ByEvent(event string) Filter {
	return func(c *Criteria) {
		c.Event = event
	}
}

// FromState restricts results to transitions that left the given state.
func FromState(state string) Filter {
	return func(c *Criteria) {
		c.FromState = state
	}
}

// ToState restricts results to transitions that entered the given state.
func ToState(state string) Filter {
	return func(c *Criteria) {
		c.ToState = state
	}
}

// Recent restricts results to entries recorded within the given window,
// measured back from now.
func Recent(window time.Duration) Filter {
	return func(c *Criteria) {
		c.Since = time.Now().Add(-window)
	}
}

// Between restricts results to entries recorded in [start, finish].
func Between(start, finish time.Time) Filter {
	return func(c *Criteria) {
		c.Since = start
		c.Until = finish
	}
}

// WithLimit caps the number of returned entries.
func WithLimit(n int) Filter {
	return func(c *Criteria) {
		c.Limit = n
	}
}

// Matches reports whether the entry satisfies the criteria. Time bounds are
// inclusive. Storage backends that cannot push filtering down may use this
// to filter in memory.
func (c Criteria) Matches(e Entry) bool {
	if c.OwnerType != "" && e.OwnerType != c.OwnerType {
		return false
	}
	if c.OwnerID != "" && e.OwnerID != c.OwnerID {
		return false
	}
	if c.Event != "" && e.Event != c.Event {
		return false
	}
	if c.FromState != "" && e.FromState != c.FromState {
		return false
	}
	if c.ToState != "" && e.ToState != c.ToState {
		return false
	}
	if !c.Since.IsZero() && e.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && e.CreatedAt.After(c.Until) {
		return false
	}
	return true
}

func buildCriteria(filters []Filter) Criteria {
	var c Criteria
	for _, f := range filters {
		if f != nil {
			f(&c)
		}
	}
	return c
}

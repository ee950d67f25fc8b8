package ledger

import (
	"fmt"
	"time"
)

// Entry represents one recorded state transition. Entries are append-only:
// once stored they are never updated or deleted by this package.
type Entry struct {
	ID        string         `json:"id" bson:"_id"`
	OwnerType string         `json:"owner_type" bson:"owner_type"`
	OwnerID   string         `json:"owner_id" bson:"owner_id"`
	Event     string         `json:"event" bson:"event"`
	FromState string         `json:"from_state" bson:"from_state"`
	ToState   string         `json:"to_state" bson:"to_state"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks that the entry carries everything a history query needs.
func (e *Entry) Validate() error {
	if e.OwnerType == "" {
		return fmt.Errorf("%w: owner type is required", ErrEntryValidation)
	}
	if e.OwnerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrEntryValidation)
	}
	if e.Event == "" {
		return fmt.Errorf("%w: event is required", ErrEntryValidation)
	}
	if e.ToState == "" {
		return fmt.Errorf("%w: to state is required", ErrEntryValidation)
	}
	return nil
}

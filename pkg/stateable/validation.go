package stateable

import (
	"context"
	"fmt"
	"strings"
)

// ValidationFunc is domain validation code run before a transition. It may
// append any number of messages to the shared collection; every validation
// runs even when earlier ones already reported failures.
type ValidationFunc func(ctx context.Context, e Entity, errs *Errors)

// ValidationError is a single validation message, optionally scoped to a
// field.
type ValidationError struct {
	Field   string
	Message string
}

// Errors is the shared error collection validations append to. A fresh
// collection is created for every transition attempt so failures from a
// prior unrelated pass never leak into the next one.
type Errors struct {
	entries []ValidationError
}

// NewErrors creates an empty collection.
func NewErrors() *Errors {
	return &Errors{}
}

// Add appends a field-scoped message.
func (e *Errors) Add(field, message string) {
	e.entries = append(e.entries, ValidationError{Field: field, Message: message})
}

// AddMessage appends a message not tied to any field.
func (e *Errors) AddMessage(message string) {
	e.entries = append(e.entries, ValidationError{Message: message})
}

// Has reports whether any message is recorded for the field.
func (e *Errors) Has(field string) bool {
	for _, entry := range e.entries {
		if entry.Field == field {
			return true
		}
	}
	return false
}

// Get returns all messages recorded for the field.
func (e *Errors) Get(field string) []string {
	var messages []string
	for _, entry := range e.entries {
		if entry.Field == field {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

// Fields returns the distinct fields that have messages, in first-seen
// order.
func (e *Errors) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, entry := range e.entries {
		if !seen[entry.Field] {
			fields = append(fields, entry.Field)
			seen[entry.Field] = true
		}
	}
	return fields
}

// Messages returns every recorded message in insertion order.
func (e *Errors) Messages() []string {
	messages := make([]string, 0, len(e.entries))
	for _, entry := range e.entries {
		messages = append(messages, entry.Message)
	}
	return messages
}

// All returns the raw entries in insertion order.
func (e *Errors) All() []ValidationError {
	return e.entries
}

// Len returns the number of recorded messages.
func (e *Errors) Len() int {
	return len(e.entries)
}

// IsEmpty reports whether the collection holds no messages.
func (e *Errors) IsEmpty() bool {
	return len(e.entries) == 0
}

// Reset discards all recorded messages.
func (e *Errors) Reset() {
	e.entries = nil
}

// Error implements the error interface, joining all messages.
func (e *Errors) Error() string {
	if e.IsEmpty() {
		return "validation failed"
	}

	parts := make([]string, 0, len(e.entries))
	for _, entry := range e.entries {
		if entry.Field != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", entry.Field, entry.Message))
		} else {
			parts = append(parts, entry.Message)
		}
	}
	return strings.Join(parts, "; ")
}

package stateable

import (
	"errors"
	"fmt"
)

// ErrNotEnabled indicates engine operations were invoked on a machine that
// never ran configuration (nil or zero-value Machine).
var ErrNotEnabled = errors.New("stateable: machine is not configured")

// ErrNilEntity indicates a nil entity was passed to an engine operation.
var ErrNilEntity = errors.New("stateable: entity cannot be nil")

// ConfigurationError indicates malformed machine configuration: duplicate
// states or events, a second initial state, transitions referencing
// undeclared states, or guard/validation/callback declarations with no
// executable body. Configuration errors are fatal; the machine is not
// usable.
type ConfigurationError struct {
	OwnerType string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stateable: invalid configuration for %s: %s", e.OwnerType, e.Reason)
}

func newConfigError(ownerType, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{OwnerType: ownerType, Reason: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError indicates no transition is declared for the
// entity's current state and the requested event.
type InvalidTransitionError struct {
	OwnerType string
	State     State
	Event     Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("stateable: no transition from state '%s' for event '%s' on %s", e.State, e.Event, e.OwnerType)
}

// CheckFailedError indicates a guard evaluated to false. Description names
// the failing guard.
type CheckFailedError struct {
	Event       Event
	Description string
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("stateable: transition '%s' blocked: %s", e.Event, e.Description)
}

// ValidationFailedError indicates one or more validations appended error
// messages. Unlike guards, validations do not short-circuit, so Errors
// carries the full accumulated collection.
type ValidationFailedError struct {
	Event  Event
	Errors *Errors
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("stateable: transition '%s' invalid: %s", e.Event, e.Errors.Error())
}

// GuardNotFoundError indicates a named guard condition or predicate does
// not exist on the entity. This is a programmer error, distinct from a
// guard returning false, and is raised only on an actual transition
// attempt; advisory Can queries report false instead.
type GuardNotFoundError struct {
	Name string
}

func (e *GuardNotFoundError) Error() string {
	return fmt.Sprintf("stateable: guard method '%s' is not defined on the entity", e.Name)
}

// CallbackNotFoundError indicates a named before/after callback does not
// exist on the entity.
type CallbackNotFoundError struct {
	Name string
}

func (e *CallbackNotFoundError) Error() string {
	return fmt.Sprintf("stateable: callback method '%s' is not defined on the entity", e.Name)
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsInvalidTransitionError(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

func IsCheckFailedError(err error) bool {
	var e *CheckFailedError
	return errors.As(err, &e)
}

func IsValidationFailedError(err error) bool {
	var e *ValidationFailedError
	return errors.As(err, &e)
}

func IsGuardNotFoundError(err error) bool {
	var e *GuardNotFoundError
	return errors.As(err, &e)
}

func IsCallbackNotFoundError(err error) bool {
	var e *CallbackNotFoundError
	return errors.As(err, &e)
}

package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDefinitionNotFound indicates no definition exists for the given identifier.
	ErrDefinitionNotFound = errors.New("definition not found")

	// ErrWorkflowNotFound indicates a workflow instance was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrEventNotFound indicates an event record was not found.
	ErrEventNotFound = errors.New("event record not found")

	// ErrVersionConflict indicates the stored state changed since it was loaded.
	ErrVersionConflict = errors.New("version conflict")

	ErrInvalidID = errors.New("invalid identifier")
)

// StateError wraps storage errors with the operation and the entity involved.
type StateError struct {
	Op      string // Operation being performed (e.g., "Get", "Persist")
	Entity  string // "definition", "workflow" or "event"
	ID      string
	Err     error
	Message string
}

func (e *StateError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %s (%v)", e.Op, e.Entity, e.ID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for state errors.
func (e *StateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewDefinitionError(op, id string, err error) *StateError {
	return &StateError{Op: op, Entity: "definition", ID: id, Err: err}
}

func NewWorkflowError(op, id string, err error) *StateError {
	return &StateError{Op: op, Entity: "workflow", ID: id, Err: err}
}

func NewEventError(op, id string, err error) *StateError {
	return &StateError{Op: op, Entity: "event", ID: id, Err: err}
}

// NewVersionConflict reports a lost optimistic update.
func NewVersionConflict(id string, expected int64) *StateError {
	return &StateError{
		Op:      "Persist",
		Entity:  "workflow",
		ID:      id,
		Err:     ErrVersionConflict,
		Message: fmt.Sprintf("expected version %d", expected),
	}
}

func IsDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound)
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// Package services exposes the runtime operations of the engine: publishing
// definitions, starting and resuming instances and dispatching external events.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/workflow"
)

var (
	// ErrInvalidRequest is returned for malformed requests (400).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStaleEvent is returned when the event record is gone or already consumed.
	// Re-delivery logic can safely drop the signal.
	ErrStaleEvent = errors.New("event no longer exists")

	// ErrPersistenceConflict is returned when another writer committed the instance
	// first. The whole step may be retried.
	ErrPersistenceConflict = errors.New("persistence conflict")

	ErrStructuralFault  = workflow.ErrStructuralFault
	ErrNodeNotWaiting   = workflow.ErrNodeNotWaiting
	ErrWorkflowFinished = workflow.ErrWorkflowFinished

	ErrDefinitionNotFound = persistence.ErrDefinitionNotFound
	ErrWorkflowNotFound   = persistence.ErrWorkflowNotFound
)

// StepError wraps a failed runtime operation with the instance it ran against.
type StepError struct {
	Op         string
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *StepError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.WorkflowID, e.NodeID, e.Err)
	case e.WorkflowID != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.WorkflowID, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newStepError(op, workflowID, nodeID string, err error) *StepError {
	return &StepError{Op: op, WorkflowID: workflowID, NodeID: nodeID, Err: err}
}

// IsValidationError reports errors caused by the request or the definition (400/422).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, models.ErrInvalidDefinition) ||
		errors.Is(err, workflow.ErrInvalidStartNode) ||
		errors.Is(err, models.ErrNodeNotFound)
}

// IsNotFoundError reports errors that should surface as 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrStaleEvent) ||
		errors.Is(err, ErrDefinitionNotFound) ||
		errors.Is(err, ErrWorkflowNotFound)
}

// IsConflictError reports errors caused by the current state of the instance (409).
func IsConflictError(err error) bool {
	return errors.Is(err, ErrPersistenceConflict) ||
		errors.Is(err, ErrNodeNotWaiting) ||
		errors.Is(err, ErrWorkflowFinished)
}

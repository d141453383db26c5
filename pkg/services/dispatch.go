package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowcore/pkg/metrics"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/otelhelper"
	"github.com/dukex/flowcore/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// DispatchWorkflowEvent delivers an external signal through its event record. A
// start record creates a new instance; any other record resumes the node it was
// registered for.
func (r *Runtime) DispatchWorkflowEvent(ctx context.Context, req DispatchRequest) (result *WorkflowExecutionResult, err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runtime.dispatch",
		attribute.String(otelhelper.EventIDKey, req.EventID),
	)
	defer span.End()
	defer r.observe(span, "dispatch", time.Now(), &err)
	defer recoverStep("dispatch", req.EventID, &err)

	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	record, err := r.loadEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if record.IsStartEvent {
		return r.dispatchStart(ctx, record, req)
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowIDKey, record.WorkflowID),
		attribute.String(otelhelper.NodeIDKey, record.NodeID),
	)

	unlock := r.locks.Lock(record.WorkflowID)
	defer unlock()

	// Read again under the lock: a concurrent delivery may have consumed it.
	record, err = r.loadEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if record.IsCompleted {
		if req.IsCompleted {
			return r.alreadyCompleted(ctx, record)
		}

		metrics.StaleEventsTotal.Inc()

		return nil, newStepError("dispatch", record.WorkflowID, record.NodeID,
			fmt.Errorf("%w: event %s already completed", ErrStaleEvent, record.ID))
	}

	result, err = r.resume(ctx, ResumeRequest{
		WorkflowID: record.WorkflowID,
		NodeID:     record.NodeID,
		Parameters: req.Parameters,
	}, record)
	if result == nil {
		return nil, err
	}

	if saveErr := r.settleDelivered(ctx, record, result); saveErr != nil {
		return result, newStepError("dispatch", record.WorkflowID, record.NodeID, saveErr)
	}

	return result, err
}

// DispatchByCorrelation delivers a signal to every open record with the key,
// oldest first.
func (r *Runtime) DispatchByCorrelation(ctx context.Context, correlationID string, parameters map[string]any) ([]*WorkflowExecutionResult, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrInvalidRequest)
	}

	records, err := r.persistence.Events().FindByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find event records for %s: %w", correlationID, err)
	}

	if len(records) == 0 {
		metrics.StaleEventsTotal.Inc()

		return nil, fmt.Errorf("%w: no open event for correlation %s", ErrStaleEvent, correlationID)
	}

	return r.dispatchAll(ctx, records, parameters)
}

// FireDueTimers dispatches every open timer record due at the current time and
// returns how many were delivered.
func (r *Runtime) FireDueTimers(ctx context.Context) (int, error) {
	records, err := r.persistence.Events().FindDue(ctx, r.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to find due timers: %w", err)
	}

	results, err := r.dispatchAll(ctx, records, nil)

	return len(results), err
}

func (r *Runtime) dispatchAll(ctx context.Context, records []*models.EventRecord, parameters map[string]any) ([]*WorkflowExecutionResult, error) {
	var (
		results []*WorkflowExecutionResult
		errs    []error
	)

	for _, record := range records {
		result, err := r.DispatchWorkflowEvent(ctx, DispatchRequest{EventID: record.ID, Parameters: parameters})
		if result != nil {
			results = append(results, result)
		}

		// A record consumed by a concurrent delivery is not a failure of this one.
		if err != nil && !errors.Is(err, ErrStaleEvent) {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

func (r *Runtime) dispatchStart(ctx context.Context, record *models.EventRecord, req DispatchRequest) (*WorkflowExecutionResult, error) {
	result, err := r.Start(ctx, StartRequest{
		DefinitionID:  record.WorkflowID,
		StartNodeID:   record.NodeID,
		CorrelationID: record.CorrelationID,
		Parameters:    req.Parameters,
	})
	if result == nil {
		return nil, err
	}

	// Start records stay open; every delivery starts a new instance.
	record.Touch(r.clock())

	if saveErr := r.persistence.Events().Save(ctx, record); saveErr != nil {
		return result, newStepError("dispatch", record.WorkflowID, record.NodeID, saveErr)
	}

	return result, err
}

// settleDelivered completes the record when its node advanced or left the wait for
// good, and only touches it when the node keeps waiting for another delivery.
func (r *Runtime) settleDelivered(ctx context.Context, record *models.EventRecord, result *WorkflowExecutionResult) error {
	now := r.clock()

	switch {
	case result.IsExecuted:
		record.Complete(now)
	case r.stillWaiting(ctx, record):
		record.Touch(now)
	default:
		record.Complete(now)
	}

	return r.persistence.Events().Save(ctx, record)
}

func (r *Runtime) stillWaiting(ctx context.Context, record *models.EventRecord) bool {
	state, err := r.persistence.Workflows().Get(ctx, record.WorkflowID)
	if err != nil {
		return true
	}

	snapshot := state.Node(record.NodeID)

	return snapshot != nil && snapshot.Status == models.NodeStatusWaiting && !state.IsFinished()
}

func (r *Runtime) alreadyCompleted(ctx context.Context, record *models.EventRecord) (*WorkflowExecutionResult, error) {
	result := &WorkflowExecutionResult{
		WorkflowID: record.WorkflowID,
		Message:    "event already completed",
	}

	if state, err := r.persistence.Workflows().Get(ctx, record.WorkflowID); err == nil {
		result.Status = state.Status
	}

	return result, nil
}

func (r *Runtime) loadEvent(ctx context.Context, eventID string) (*models.EventRecord, error) {
	record, err := r.persistence.Events().Get(ctx, eventID)
	if err != nil {
		if persistence.IsEventNotFound(err) {
			metrics.StaleEventsTotal.Inc()

			return nil, newStepError("dispatch", "", "", fmt.Errorf("%w: %s", ErrStaleEvent, eventID))
		}

		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	return record, nil
}

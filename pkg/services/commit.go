package services

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/events"
	"github.com/dukex/flowcore/pkg/metrics"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/workflow"
	"github.com/google/uuid"
)

// commit is the persistence boundary of a step: the state is written first, its
// domain events are published only once the write succeeded, then the event
// records follow the new node statuses.
func (r *Runtime) commit(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	state *models.WorkflowState,
	step *workflow.StepResult,
	delivered *models.EventRecord,
) error {
	changes := state.Changes()

	if err := r.persistence.Workflows().Persist(ctx, state); err != nil {
		if persistence.IsVersionConflict(err) {
			metrics.PersistenceConflictsTotal.Inc()

			return fmt.Errorf("%w: %w", ErrPersistenceConflict, err)
		}

		return fmt.Errorf("failed to persist workflow %s: %w", state.ID, err)
	}

	for _, change := range changes {
		nodeType := ""
		if snapshot := state.Node(change.NodeID); snapshot != nil {
			nodeType = snapshot.Type
		}

		r.logger.InfoContext(ctx, "Node status changed",
			"workflow_id", state.ID,
			"node_id", change.NodeID,
			"from", change.From,
			"to", change.To,
		)
		metrics.NodeTransitionsTotal.WithLabelValues(nodeType, string(change.To)).Inc()
	}

	if len(step.Faults) > 0 {
		metrics.NodeFaultsTotal.WithLabelValues(definition.ID).Add(float64(len(step.Faults)))
	}

	r.publish(ctx, state)
	state.ClearDomainEvents()
	state.AcceptChanges()

	return r.syncEventRecords(ctx, state, step, delivered)
}

// publish forwards the domain events in the order they were raised. The state is
// already durable, so a transport failure is logged and does not fail the step.
func (r *Runtime) publish(ctx context.Context, state *models.WorkflowState) {
	for _, event := range state.DomainEvents() {
		if finished, ok := event.(events.WorkflowFinished); ok {
			metrics.WorkflowsFinishedTotal.WithLabelValues(finished.DefinitionID, finished.Status).Inc()
		}

		if r.publisher == nil {
			continue
		}

		if err := r.publisher.Publish(ctx, state.ID, event); err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish domain event",
				"workflow_id", state.ID,
				"event_type", event.GetType(),
				"error", err,
			)
		}
	}
}

// syncEventRecords creates a record for every new wait and completes the records of
// nodes that are no longer waiting, or that started a new wait during the step.
// The delivered record is left to the dispatcher.
func (r *Runtime) syncEventRecords(ctx context.Context, state *models.WorkflowState, step *workflow.StepResult, delivered *models.EventRecord) error {
	now := r.clock()
	repository := r.persistence.Events()

	rewaited := make(map[string]bool, len(step.Waits))
	for _, wait := range step.Waits {
		rewaited[wait.NodeID] = true
	}

	open, err := repository.FindByWorkflowID(ctx, state.ID)
	if err != nil {
		return fmt.Errorf("failed to load event records of %s: %w", state.ID, err)
	}

	for _, record := range open {
		if record.IsCompleted || (delivered != nil && record.ID == delivered.ID) {
			continue
		}

		snapshot := state.Node(record.NodeID)
		if snapshot != nil && snapshot.Status == models.NodeStatusWaiting && !rewaited[record.NodeID] {
			continue
		}

		record.Complete(now)

		if err := repository.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to close event record %s: %w", record.ID, err)
		}
	}

	for _, wait := range step.Waits {
		record := &models.EventRecord{
			ID:            uuid.NewString(),
			WorkflowID:    state.ID,
			NodeID:        wait.NodeID,
			CorrelationID: wait.Wait.CorrelationID,
			Kind:          wait.Wait.Kind,
			DueAt:         wait.Wait.DueAt,
			CreatedAt:     now,
		}

		if err := repository.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to save event record for %s: %w", wait.NodeID, err)
		}

		r.logger.DebugContext(ctx, "Event record registered",
			"workflow_id", state.ID,
			"node_id", wait.NodeID,
			"event_id", record.ID,
			"correlation_id", record.CorrelationID,
		)
	}

	return nil
}

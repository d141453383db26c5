package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowcore/pkg/eventbus"
	"github.com/dukex/flowcore/pkg/events"
	"github.com/dukex/flowcore/pkg/services"
)

// Worker consumes command events and runs them through the runtime.
type Worker struct {
	id       string
	logger   *slog.Logger
	runtime  *services.Runtime
	eventBus eventbus.EventSubscriber
	timers   *TimerPoller
}

func NewWorker(
	id string,
	runtime *services.Runtime,
	eventBus eventbus.EventSubscriber,
	timers *TimerPoller,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:       id,
		logger:   logger.With("module", "flowcore-worker", "worker_id", id),
		runtime:  runtime,
		eventBus: eventBus,
		timers:   timers,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	handlers := eventbus.Handlers{
		events.StartWorkflowRequestedEvent:     w.handleStart,
		events.ResumeWorkflowRequestedEvent:    w.handleResume,
		events.DispatchEventRequestedEvent:     w.handleDispatch,
		events.TerminateWorkflowRequestedEvent: w.handleTerminate,
	}

	if err := handlers.Register(w.eventBus); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if w.timers != nil {
		if err := w.timers.Start(ctx); err != nil {
			return err
		}
		defer w.timers.Stop()
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *Worker) handleStart(ctx context.Context, event any) error {
	request, ok := event.(*events.StartWorkflowRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for StartWorkflowRequested")

		return nil
	}

	logger := w.logger.With("definition_id", request.DefinitionID, "event_id", request.ID)
	logger.InfoContext(ctx, "Processing start request")

	result, err := w.runtime.Start(ctx, services.StartRequest{
		DefinitionID:  request.DefinitionID,
		StartNodeID:   request.StartNodeID,
		CorrelationID: request.CorrelationID,
		Parameters:    request.Parameters,
	})

	return w.settle(ctx, logger, result, err)
}

func (w *Worker) handleResume(ctx context.Context, event any) error {
	request, ok := event.(*events.ResumeWorkflowRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ResumeWorkflowRequested")

		return nil
	}

	logger := w.logger.With("workflow_id", request.WorkflowID, "node_id", request.NodeID)
	logger.InfoContext(ctx, "Processing resume request")

	result, err := w.runtime.Resume(ctx, services.ResumeRequest{
		WorkflowID: request.WorkflowID,
		NodeID:     request.NodeID,
		Parameters: request.Parameters,
	})

	return w.settle(ctx, logger, result, err)
}

func (w *Worker) handleDispatch(ctx context.Context, event any) error {
	request, ok := event.(*events.DispatchEventRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DispatchEventRequested")

		return nil
	}

	logger := w.logger.With("event_record_id", request.EventID, "correlation_id", request.CorrelationID)

	switch {
	case request.EventID != "":
		logger.InfoContext(ctx, "Processing event dispatch")

		result, err := w.runtime.DispatchWorkflowEvent(ctx, services.DispatchRequest{
			EventID:     request.EventID,
			Parameters:  request.Parameters,
			IsCompleted: request.IsCompleted,
		})

		return w.settle(ctx, logger, result, err)
	case request.CorrelationID != "":
		logger.InfoContext(ctx, "Processing correlation dispatch")

		results, err := w.runtime.DispatchByCorrelation(ctx, request.CorrelationID, request.Parameters)
		for _, result := range results {
			logger.DebugContext(ctx, "Dispatched", "workflow_id", result.WorkflowID, "executed", result.IsExecuted)
		}

		return w.settle(ctx, logger, nil, err)
	default:
		logger.WarnContext(ctx, "Dropping dispatch request without event or correlation id")

		return nil
	}
}

func (w *Worker) handleTerminate(ctx context.Context, event any) error {
	request, ok := event.(*events.TerminateWorkflowRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TerminateWorkflowRequested")

		return nil
	}

	logger := w.logger.With("workflow_id", request.WorkflowID)
	logger.InfoContext(ctx, "Processing terminate request")

	result, err := w.runtime.Terminate(ctx, request.WorkflowID, request.Reason)

	return w.settle(ctx, logger, result, err)
}

// settle decides whether a failed command is redelivered. Only failures that can
// succeed on a later attempt are returned to the bus.
func (w *Worker) settle(ctx context.Context, logger *slog.Logger, result *services.WorkflowExecutionResult, err error) error {
	if err == nil {
		if result != nil {
			logger.InfoContext(ctx, "Command processed",
				"workflow_id", result.WorkflowID,
				"executed", result.IsExecuted,
				"status", result.Status,
			)
		}

		return nil
	}

	if !isRetryable(err) {
		logger.WarnContext(ctx, "Dropping command", "error", err)

		return nil
	}

	logger.ErrorContext(ctx, "Command failed, requesting redelivery", "error", err)

	return err
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, services.ErrPersistenceConflict):
		return true
	case errors.Is(err, services.ErrStructuralFault),
		services.IsValidationError(err),
		services.IsNotFoundError(err),
		services.IsConflictError(err):
		return false
	default:
		return true
	}
}

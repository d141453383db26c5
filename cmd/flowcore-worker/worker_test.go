package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/flowcore/pkg/events"
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/mocks"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence/file"
	"github.com/dukex/flowcore/pkg/registry"
	"github.com/dukex/flowcore/pkg/services"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(t *testing.T) (*Worker, *services.Runtime) {
	t.Helper()

	logger := discardLogger()
	persistence := file.NewPersistence(t.TempDir())
	evaluator := expression.NewEvaluator()
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(evaluator)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	runtime := services.NewRuntime(persistence, bus, reg, evaluator, noop.NewTracerProvider().Tracer("test"), logger)

	publishing := services.NewPublishing(persistence, reg, logger)
	_, err := publishing.Publish(context.Background(), testutil.NewDefinition("approval").
		Node("Start", models.NodeTypeStartEvent).
		Node("Review", "userTask").
		Node("End", "endEvent").
		Flow("f1", "Start", "Review").
		Flow("f2", "Review", "End").
		Build())
	require.NoError(t, err)

	return NewWorker("worker-test", runtime, bus, nil, logger), runtime
}

func TestWorker_HandleResume(t *testing.T) {
	worker, runtime := newTestWorker(t)
	ctx := context.Background()

	started, err := runtime.Start(ctx, services.StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	resume := &events.ResumeWorkflowRequested{
		BaseEvent: events.NewBaseEvent(events.ResumeWorkflowRequestedEvent, started.WorkflowID),
		NodeID:    "Review",
	}

	require.NoError(t, worker.handleResume(ctx, resume))

	state, err := runtime.State(ctx, started.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, state.Status)

	// a second delivery hits a finished instance and is dropped
	require.NoError(t, worker.handleResume(ctx, resume))
}

func TestWorker_HandleTerminate(t *testing.T) {
	worker, runtime := newTestWorker(t)
	ctx := context.Background()

	started, err := runtime.Start(ctx, services.StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	require.NoError(t, worker.handleTerminate(ctx, &events.TerminateWorkflowRequested{
		BaseEvent: events.NewBaseEvent(events.TerminateWorkflowRequestedEvent, started.WorkflowID),
		Reason:    "shutdown",
	}))

	state, err := runtime.State(ctx, started.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusTerminated, state.Status)
}

func TestWorker_DropsUnrecoverableCommands(t *testing.T) {
	worker, _ := newTestWorker(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, any) error
		event   any
	}{
		{
			name:    "unknown definition",
			handler: worker.handleStart,
			event: &events.StartWorkflowRequested{
				BaseEvent:    events.NewBaseEvent(events.StartWorkflowRequestedEvent, ""),
				DefinitionID: "missing",
			},
		},
		{
			name:    "stale event record",
			handler: worker.handleDispatch,
			event: &events.DispatchEventRequested{
				BaseEvent: events.NewBaseEvent(events.DispatchEventRequestedEvent, ""),
				EventID:   "gone",
			},
		},
		{
			name:    "no open record for correlation",
			handler: worker.handleDispatch,
			event: &events.DispatchEventRequested{
				BaseEvent:     events.NewBaseEvent(events.DispatchEventRequestedEvent, ""),
				CorrelationID: "order-1",
			},
		},
		{
			name:    "dispatch without target",
			handler: worker.handleDispatch,
			event:   &events.DispatchEventRequested{BaseEvent: events.NewBaseEvent(events.DispatchEventRequestedEvent, "")},
		},
		{
			name:    "wrong payload type",
			handler: worker.handleTerminate,
			event:   &events.WorkflowStarted{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.handler(ctx, tt.event))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{err: fmt.Errorf("resume wf1: %w", services.ErrPersistenceConflict), expected: true},
		{err: errors.New("connection reset"), expected: true},
		{err: services.ErrStaleEvent, expected: false},
		{err: services.ErrInvalidRequest, expected: false},
		{err: services.ErrNodeNotWaiting, expected: false},
		{err: services.ErrWorkflowFinished, expected: false},
		{err: services.ErrStructuralFault, expected: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isRetryable(tt.err), tt.err.Error())
	}
}

type countingFirer struct {
	calls atomic.Int32
}

func (c *countingFirer) FireDueTimers(context.Context) (int, error) {
	c.calls.Add(1)

	return 0, nil
}

func TestTimerPoller(t *testing.T) {
	firer := &countingFirer{}

	poller := NewTimerPoller(firer, time.Second, discardLogger())
	require.NoError(t, poller.Start(context.Background()))

	assert.Eventually(t, func() bool { return firer.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	poller.Stop()

	bad := NewTimerPoller(firer, 0, discardLogger())
	assert.Error(t, bad.Start(context.Background()))
}

package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowcore/pkg/events"
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/mocks"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes/usertask"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/persistence/file"
	"github.com/dukex/flowcore/pkg/registry"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	runtime    *Runtime
	publishing *Publishing
	store      *file.Persistence
	bus        *mocks.MockEventBus
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return newFixtureWith(t, store, store)
}

// newFixtureWith runs the runtime over p while definitions are published to store.
func newFixtureWith(t *testing.T, store *file.Persistence, p persistence.Persistence) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	evaluator := expression.NewEvaluator()
	library := registry.NewRegistry(logger)
	library.RegisterDefaultNodes(evaluator)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f := &fixture{store: store, bus: bus, now: testNow}
	clock := func() time.Time { return f.now }

	f.runtime = NewRuntime(p, bus, library, evaluator, noop.NewTracerProvider().Tracer("test"), logger).WithClock(clock)
	f.publishing = NewPublishing(store, library, logger)
	f.publishing.clock = clock

	return f
}

func (f *fixture) publish(t *testing.T, definition *models.WorkflowDefinition) *models.WorkflowDefinition {
	t.Helper()

	published, err := f.publishing.Publish(context.Background(), definition)
	require.NoError(t, err)

	return published
}

func (f *fixture) records(t *testing.T, workflowID string) []*models.EventRecord {
	t.Helper()

	records, err := f.store.Events().FindByWorkflowID(context.Background(), workflowID)
	require.NoError(t, err)

	return records
}

func (f *fixture) openRecords(t *testing.T, workflowID string) []*models.EventRecord {
	t.Helper()

	var open []*models.EventRecord

	for _, record := range f.records(t, workflowID) {
		if !record.IsCompleted {
			open = append(open, record)
		}
	}

	return open
}

func (f *fixture) state(t *testing.T, workflowID string) *models.WorkflowState {
	t.Helper()

	state, err := f.runtime.State(context.Background(), workflowID)
	require.NoError(t, err)

	return state
}

func approvalDefinition() *models.WorkflowDefinition {
	return testutil.NewDefinition("approval").
		Node("Start", models.NodeTypeStartEvent).
		Node("Review", "userTask", testutil.WithProperties(map[string]any{
			"required_fields": []any{"approved"},
		})).
		Node("End", "endEvent", testutil.WithProperties(map[string]any{
			"output": []any{"approved"},
		})).
		Flow("f1", "Start", "Review").
		Flow("f2", "Review", "End").
		Build()
}

func TestRuntime_Start_SuspendsOnUserTask(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	result, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	assert.True(t, result.IsExecuted)
	assert.Equal(t, models.WorkflowStatusActive, result.Status)
	assert.NotEmpty(t, result.WorkflowID)

	state := f.state(t, result.WorkflowID)
	assert.Equal(t, int64(1), state.Version)
	assert.Equal(t, 1, state.DefinitionVersion)
	assert.Equal(t, models.NodeStatusWaiting, state.Node("Review").Status)

	records := f.openRecords(t, result.WorkflowID)
	require.Len(t, records, 1)
	assert.Equal(t, "Review", records[0].NodeID)
	assert.Equal(t, models.EventKindUser, records[0].Kind)
	assert.False(t, records[0].IsStartEvent)

	assert.Equal(t, []events.EventType{events.WorkflowStartedEvent, events.ProcessStartedEvent}, f.bus.PublishedTypes())
}

func TestRuntime_Start_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.runtime.Start(context.Background(), StartRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.True(t, IsValidationError(err))

	_, err = f.runtime.Start(context.Background(), StartRequest{DefinitionID: "missing"})
	require.ErrorIs(t, err, ErrDefinitionNotFound)
	assert.True(t, IsNotFoundError(err))

	f.publish(t, testutil.NewDefinition("two-starts").
		Node("A", models.NodeTypeStartEvent).
		Node("B", models.NodeTypeStartEvent).
		Node("End", "endEvent").
		Flow("f1", "A", "End").
		Flow("f2", "B", "End").
		Build())

	_, err = f.runtime.Start(context.Background(), StartRequest{DefinitionID: "two-starts"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.runtime.Start(context.Background(), StartRequest{DefinitionID: "two-starts", StartNodeID: "End"})
	assert.True(t, IsValidationError(err))

	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRuntime_DispatchWorkflowEvent_CompletesRecord(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	record := f.openRecords(t, started.WorkflowID)[0]

	f.now = testNow.Add(time.Minute)

	result, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{
		EventID:    record.ID,
		Parameters: map[string]any{"approved": true, usertask.UserField: "ana"},
	})
	require.NoError(t, err)

	assert.True(t, result.IsExecuted)
	assert.Equal(t, models.WorkflowStatusCompleted, result.Status)

	stored, err := f.store.Events().Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
	require.NotNil(t, stored.LastCall)
	assert.Equal(t, f.now, stored.LastCall.UTC())

	state := f.state(t, started.WorkflowID)
	assert.Equal(t, int64(2), state.Version)
	assert.Equal(t, "ana", state.Node("Review").User)
	assert.Equal(t, map[string]any{"approved": true}, state.Output)
	assert.Equal(t, []events.EventType{
		events.WorkflowStartedEvent,
		events.ProcessStartedEvent,
		events.ProcessFinishedEvent,
		events.WorkflowFinishedEvent,
	}, f.bus.PublishedTypes())
}

func TestRuntime_DispatchWorkflowEvent_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	record := f.openRecords(t, started.WorkflowID)[0]
	request := DispatchRequest{EventID: record.ID, Parameters: map[string]any{"approved": true}}

	_, err = f.runtime.DispatchWorkflowEvent(context.Background(), request)
	require.NoError(t, err)

	before := f.state(t, started.WorkflowID)

	request.IsCompleted = true

	for range 2 {
		result, err := f.runtime.DispatchWorkflowEvent(context.Background(), request)
		require.NoError(t, err)
		assert.False(t, result.IsExecuted)
		assert.Equal(t, "event already completed", result.Message)
		assert.Equal(t, models.WorkflowStatusCompleted, result.Status)
	}

	after := f.state(t, started.WorkflowID)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.Nodes, after.Nodes)

	request.IsCompleted = false

	_, err = f.runtime.DispatchWorkflowEvent(context.Background(), request)
	require.ErrorIs(t, err, ErrStaleEvent)
	assert.True(t, IsNotFoundError(err))
}

func TestRuntime_DispatchWorkflowEvent_NotAdvancedTouchesRecord(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	record := f.openRecords(t, started.WorkflowID)[0]

	result, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{EventID: record.ID})
	require.NoError(t, err)

	assert.False(t, result.IsExecuted)
	assert.Equal(t, "missing fields: approved", result.Message)
	assert.Equal(t, models.WorkflowStatusActive, result.Status)

	records := f.records(t, started.WorkflowID)
	require.Len(t, records, 1, "waiting again must not register a second record")
	assert.False(t, records[0].IsCompleted)
	assert.NotNil(t, records[0].LastCall)

	assert.Equal(t, models.NodeStatusWaiting, f.state(t, started.WorkflowID).Node("Review").Status)
}

func TestRuntime_DispatchWorkflowEvent_StaleAndInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{EventID: "gone"})
	require.ErrorIs(t, err, ErrStaleEvent)

	_, err = f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRuntime_DispatchWorkflowEvent_StartRecordCreatesInstances(t *testing.T) {
	f := newFixture(t)
	f.publish(t, testutil.NewDefinition("orders").
		Node("Start", models.NodeTypeStartEvent, testutil.WithProperties(map[string]any{
			"correlation": "order.created",
			"kind":        "message",
		})).
		Node("End", "endEvent").
		Flow("f1", "Start", "End").
		Build())

	records, err := f.store.Events().FindByCorrelationID(context.Background(), "order.created")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.True(t, record.IsStartEvent)
	assert.Equal(t, "orders", record.WorkflowID)
	assert.Equal(t, models.EventKindMessage, record.Kind)
	assert.Equal(t, startRecordID("orders", "Start"), record.ID)

	first, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{EventID: record.ID})
	require.NoError(t, err)

	second, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{EventID: record.ID})
	require.NoError(t, err)

	assert.NotEqual(t, first.WorkflowID, second.WorkflowID)
	assert.Equal(t, models.WorkflowStatusCompleted, first.Status)

	state := f.state(t, first.WorkflowID)
	assert.Equal(t, "orders", state.DefinitionID)
	assert.Equal(t, "order.created", state.CorrelationID)

	stored, err := f.store.Events().Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted)
	assert.NotNil(t, stored.LastCall)
}

func TestRuntime_DispatchByCorrelation(t *testing.T) {
	f := newFixture(t)
	f.publish(t, testutil.NewDefinition("payment").
		Node("Start", models.NodeTypeStartEvent).
		Node("WaitPayment", "messageCatchEvent", testutil.WithProperties(map[string]any{
			"message":     "paid",
			"correlation": "order-{{ .vars.order_id }}",
		})).
		Node("End", "endEvent").
		Flow("f1", "Start", "WaitPayment").
		Flow("f2", "WaitPayment", "End").
		Build())

	started, err := f.runtime.Start(context.Background(), StartRequest{
		DefinitionID: "payment",
		Parameters:   map[string]any{"order_id": "42"},
	})
	require.NoError(t, err)

	records := f.openRecords(t, started.WorkflowID)
	require.Len(t, records, 1)
	assert.Equal(t, "order-42", records[0].CorrelationID)
	assert.Equal(t, models.EventKindMessage, records[0].Kind)

	results, err := f.runtime.DispatchByCorrelation(context.Background(), "order-42", map[string]any{"amount": 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsExecuted)
	assert.Equal(t, models.WorkflowStatusCompleted, results[0].Status)

	_, err = f.runtime.DispatchByCorrelation(context.Background(), "order-42", nil)
	require.ErrorIs(t, err, ErrStaleEvent)

	_, err = f.runtime.DispatchByCorrelation(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRuntime_FireDueTimers(t *testing.T) {
	f := newFixture(t)
	f.publish(t, testutil.NewDefinition("reminder").
		Node("Start", models.NodeTypeStartEvent).
		Node("Wait", "timerCatchEvent", testutil.WithProperties(map[string]any{"duration": "1h"})).
		Node("End", "endEvent").
		Flow("f1", "Start", "Wait").
		Flow("f2", "Wait", "End").
		Build())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "reminder"})
	require.NoError(t, err)

	records := f.openRecords(t, started.WorkflowID)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].DueAt)
	assert.Equal(t, testNow.Add(time.Hour), records[0].DueAt.UTC())

	fired, err := f.runtime.FireDueTimers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	f.now = testNow.Add(2 * time.Hour)

	fired, err = f.runtime.FireDueTimers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	assert.Equal(t, models.WorkflowStatusCompleted, f.state(t, started.WorkflowID).Status)
	assert.Empty(t, f.openRecords(t, started.WorkflowID))
}

func TestRuntime_Resume_ClosesRecord(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	result, err := f.runtime.Resume(context.Background(), ResumeRequest{
		WorkflowID: started.WorkflowID,
		NodeID:     "Review",
		Parameters: map[string]any{"approved": false},
	})
	require.NoError(t, err)

	assert.True(t, result.IsExecuted)
	assert.Equal(t, models.WorkflowStatusCompleted, result.Status)
	assert.Empty(t, f.openRecords(t, started.WorkflowID))
}

func TestRuntime_Resume_Errors(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	_, err = f.runtime.Resume(context.Background(), ResumeRequest{WorkflowID: started.WorkflowID, NodeID: "End"})
	require.ErrorIs(t, err, ErrNodeNotWaiting)
	assert.True(t, IsConflictError(err))

	_, err = f.runtime.Resume(context.Background(), ResumeRequest{WorkflowID: "missing", NodeID: "Review"})
	require.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = f.runtime.Resume(context.Background(), ResumeRequest{WorkflowID: started.WorkflowID})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRuntime_Terminate(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	result, err := f.runtime.Terminate(context.Background(), started.WorkflowID, "cancelled by customer")
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusTerminated, result.Status)
	assert.Empty(t, f.openRecords(t, started.WorkflowID))

	state := f.state(t, started.WorkflowID)
	assert.Equal(t, models.ProcessStatusTerminated, state.Process(models.DefaultProcessID).Status)
	assert.NotNil(t, state.FinishedAt)

	_, err = f.runtime.Terminate(context.Background(), started.WorkflowID, "again")
	require.ErrorIs(t, err, ErrWorkflowFinished)
	assert.True(t, IsConflictError(err))
}

func TestRuntime_StructuralFaultIsPersisted(t *testing.T) {
	f := newFixture(t)
	f.publish(t, testutil.NewDefinition("dead-end").
		Node("Start", models.NodeTypeStartEvent).
		Node("Gateway", "exclusiveGateway").
		Node("End", "endEvent").
		Flow("f0", "Start", "Gateway").
		Flow("f1", "Gateway", "End", testutil.WithCondition("x > 0")).
		Build())

	result, err := f.runtime.Start(context.Background(), StartRequest{
		DefinitionID: "dead-end",
		Parameters:   map[string]any{"x": -1},
	})
	require.ErrorIs(t, err, ErrStructuralFault)
	require.NotNil(t, result)

	assert.Equal(t, models.WorkflowStatusFaulted, result.Status)
	require.Len(t, result.Faults, 1)
	assert.Equal(t, "Gateway", result.Faults[0].NodeID)

	state := f.state(t, result.WorkflowID)
	assert.Equal(t, models.NodeStatusFaulted, state.Node("Gateway").Status)
	assert.NotEmpty(t, state.Process(models.DefaultProcessID).FaultMessage)
	assert.Contains(t, f.bus.PublishedTypes(), events.ProcessFinishedEvent)
}

func TestRuntime_PersistConflictPublishesNothing(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	workflows := &mocks.MockWorkflowStateRepository{}
	workflows.On("Persist", mock.Anything, mock.Anything).Return(persistence.NewVersionConflict("wf", 0))

	p := mocks.NewMockPersistence(store)
	p.WorkflowRepository = workflows

	f := newFixtureWith(t, store, p)
	f.publish(t, approvalDefinition())

	result, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.ErrorIs(t, err, ErrPersistenceConflict)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
	assert.Nil(t, result)
	assert.True(t, IsConflictError(err))

	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	workflows.AssertExpectations(t)
}

func TestRuntime_ConcurrentDispatchExecutesOnce(t *testing.T) {
	f := newFixture(t)
	f.publish(t, approvalDefinition())

	started, err := f.runtime.Start(context.Background(), StartRequest{DefinitionID: "approval"})
	require.NoError(t, err)

	record := f.openRecords(t, started.WorkflowID)[0]

	const deliveries = 5

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		executed int
		stale    int
	)

	for range deliveries {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := f.runtime.DispatchWorkflowEvent(context.Background(), DispatchRequest{
				EventID:    record.ID,
				Parameters: map[string]any{"approved": true},
			})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil && result.IsExecuted:
				executed++
			case IsNotFoundError(err):
				stale++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, executed)
	assert.Equal(t, deliveries-1, stale)
	assert.Equal(t, int64(2), f.state(t, started.WorkflowID).Version)
	assert.Equal(t, 0, f.runtime.locks.size())
}

func TestRuntime_HealthCheck(t *testing.T) {
	f := newFixture(t)

	message, ok := f.runtime.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}

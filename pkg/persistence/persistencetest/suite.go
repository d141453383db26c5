// Package persistencetest holds the behavior every persistence backend must share.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) persistence.Persistence

var baseTime = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// Run exercises a backend against the repository contracts.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("definitions", func(t *testing.T) { testDefinitions(t, factory(t)) })
	t.Run("workflow states", func(t *testing.T) { testWorkflowStates(t, factory(t)) })
	t.Run("event records", func(t *testing.T) { testEventRecords(t, factory(t)) })
	t.Run("health check", func(t *testing.T) {
		require.NoError(t, factory(t).HealthCheck(context.Background()))
	})
}

func definition(id string, version int) *models.WorkflowDefinition {
	definition := testutil.NewDefinition(id).
		Node("Start", models.NodeTypeStartEvent).
		Node("End", "endEvent").
		Flow("f1", "Start", "End").
		Build()
	definition.Version = version
	definition.CreatedAt = baseTime

	return definition
}

func testDefinitions(t *testing.T, store persistence.Persistence) {
	ctx := context.Background()
	repository := store.Definitions()

	_, err := repository.Get(ctx, "orders")
	require.ErrorIs(t, err, persistence.ErrDefinitionNotFound)

	require.NoError(t, repository.Save(ctx, definition("orders", 1)))

	second := definition("orders", 2)
	second.Name = "Orders v2"
	require.NoError(t, repository.Save(ctx, second))
	require.NoError(t, repository.Save(ctx, definition("refunds", 1)))

	latest, err := repository.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "Orders v2", latest.Name)
	require.NoError(t, latest.Compile())

	first, err := repository.GetVersion(ctx, "orders", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Len(t, first.Nodes, 2)
	assert.Equal(t, "Start", first.Flows[0].SourceRef)

	_, err = repository.GetVersion(ctx, "orders", 3)
	require.ErrorIs(t, err, persistence.ErrDefinitionNotFound)

	all, err := repository.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	versions := map[string]int{}
	for _, d := range all {
		versions[d.ID] = d.Version
	}

	assert.Equal(t, map[string]int{"orders": 2, "refunds": 1}, versions)
}

func testWorkflowStates(t *testing.T, store persistence.Persistence) {
	ctx := context.Background()
	repository := store.Workflows()
	def := definition("orders", 1)

	_, err := repository.Get(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	state := models.NewWorkflowState("wf-1", def, "order-42", baseTime)
	state.EnsureNode("Start", models.NodeTypeStartEvent).Status = models.NodeStatusCompleted
	end := state.EnsureNode("End", "endEvent")
	end.Status = models.NodeStatusWaiting
	end.Message = "waiting for approval"
	flow := state.EnsureFlow("f1")
	flow.FireCount = 1
	flow.IsActive = true
	state.EnsureProcess(models.DefaultProcessID).Status = models.ProcessStatusActive
	billing := state.EnsureProcess("billing")
	billing.Status = models.ProcessStatusFaulted
	billing.FaultMessage = "card declined"
	state.Variables["amount"] = "12.50"

	require.NoError(t, repository.Persist(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	loaded, err := repository.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	assert.Equal(t, "order-42", loaded.CorrelationID)
	assert.Equal(t, models.NodeStatusCompleted, loaded.Node("Start").Status)
	assert.Equal(t, models.NodeStatusWaiting, loaded.Node("End").Status)
	assert.Equal(t, "waiting for approval", loaded.Node("End").Message)
	assert.Equal(t, 1, loaded.Flow("f1").FireCount)
	assert.True(t, loaded.Flow("f1").IsActive)
	assert.Equal(t, models.ProcessStatusActive, loaded.Process(models.DefaultProcessID).Status)
	require.NotNil(t, loaded.Process("billing"))
	assert.Equal(t, models.ProcessStatusFaulted, loaded.Process("billing").Status)
	assert.Equal(t, "card declined", loaded.Process("billing").FaultMessage)

	for _, node := range state.Nodes {
		assert.Equal(t, node.Status, loaded.Node(node.ID).Status, node.ID)
	}

	for _, process := range state.Processes {
		assert.Equal(t, process.Status, loaded.Process(process.ID).Status, process.ID)
	}
	assert.Equal(t, "12.50", loaded.Variables["amount"])
	assert.Empty(t, loaded.Changes(), "a loaded state is its own baseline")

	stale, err := repository.Get(ctx, "wf-1")
	require.NoError(t, err)

	loaded.Status = models.WorkflowStatusCompleted
	require.NoError(t, repository.Persist(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	stale.Variables["amount"] = "0"
	err = repository.Persist(ctx, stale)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
	assert.Equal(t, int64(1), stale.Version)

	duplicate := models.NewWorkflowState("wf-1", def, "", baseTime)
	require.ErrorIs(t, repository.Persist(ctx, duplicate), persistence.ErrVersionConflict)

	current, err := repository.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, current.Status)
	assert.Equal(t, "12.50", current.Variables["amount"])
}

func record(id, workflowID, nodeID, correlationID string, offset time.Duration) *models.EventRecord {
	return &models.EventRecord{
		ID:            id,
		WorkflowID:    workflowID,
		NodeID:        nodeID,
		CorrelationID: correlationID,
		Kind:          models.EventKindMessage,
		CreatedAt:     baseTime.Add(offset),
	}
}

func testEventRecords(t *testing.T, store persistence.Persistence) {
	ctx := context.Background()
	repository := store.Events()

	_, err := repository.Get(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrEventNotFound)

	later := record("ev-2", "wf-2", "Wait", "order-1", time.Minute)
	earlier := record("ev-1", "wf-1", "Wait", "order-1", 0)
	other := record("ev-3", "wf-1", "Approve", "order-2", 2*time.Minute)

	for _, r := range []*models.EventRecord{later, earlier, other} {
		require.NoError(t, repository.Save(ctx, r))
	}

	found, err := repository.FindByCorrelationID(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "ev-1", found[0].ID)
	assert.Equal(t, "ev-2", found[1].ID)

	earlier.Complete(baseTime.Add(time.Hour))
	require.NoError(t, repository.Save(ctx, earlier))

	found, err = repository.FindByCorrelationID(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ev-2", found[0].ID)

	stored, err := repository.Get(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
	require.NotNil(t, stored.LastCall)
	assert.True(t, baseTime.Add(time.Hour).Equal(*stored.LastCall))

	byWorkflow, err := repository.FindByWorkflowID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	due := baseTime.Add(30 * time.Minute)
	timer := &models.EventRecord{ID: "ev-timer", WorkflowID: "wf-1", NodeID: "Sleep", Kind: models.EventKindTimer, DueAt: &due, CreatedAt: baseTime}
	require.NoError(t, repository.Save(ctx, timer))

	pending, err := repository.FindDue(ctx, baseTime)
	require.NoError(t, err)
	assert.Empty(t, pending)

	pending, err = repository.FindDue(ctx, baseTime.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ev-timer", pending[0].ID)

	start := func(id, nodeID string) *models.EventRecord {
		return &models.EventRecord{ID: id, WorkflowID: "orders", NodeID: nodeID, IsStartEvent: true, Kind: models.EventKindStart, CreatedAt: baseTime}
	}

	require.NoError(t, repository.UpdateStartNodes(ctx, "orders", []*models.EventRecord{start("st-1", "Start"), start("st-2", "Manual")}))
	require.NoError(t, repository.UpdateStartNodes(ctx, "orders", []*models.EventRecord{start("st-1", "Start")}))

	startRecords, err := repository.FindByWorkflowID(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, startRecords, 1)
	assert.Equal(t, "st-1", startRecords[0].ID)

	_, err = repository.Get(ctx, "st-2")
	require.ErrorIs(t, err, persistence.ErrEventNotFound)
}

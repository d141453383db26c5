package models_test

import (
	"errors"
	"testing"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_DerivesIndexes(t *testing.T) {
	definition := testutil.NewDefinition("order").
		Node("Start", models.NodeTypeStartEvent).
		Node("Check", "exclusiveGateway", testutil.WithDefault("f3")).
		Node("Ship", "serviceTask").
		Node("Reject", "endEvent").
		Flow("f1", "Start", "Check").
		Flow("f2", "Check", "Ship", testutil.WithCondition("approved")).
		Flow("f3", "Check", "Reject").
		Node("Done", "endEvent").
		Flow("f4", "Ship", "Done").
		Compile(t)

	check, err := definition.Resolve("Check")
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, check.Incomings)
	assert.Equal(t, []string{"f2", "f3"}, check.Outgoings)

	outgoing := definition.OutgoingFlows("Check")
	require.Len(t, outgoing, 2)
	assert.True(t, outgoing[0].IsConditional())
	assert.False(t, outgoing[1].IsConditional())

	require.Len(t, definition.Processes, 1)
	assert.Equal(t, models.DefaultProcessID, definition.ProcessOf("Ship"))

	starts := definition.StartNodes()
	require.Len(t, starts, 1)
	assert.Equal(t, "Start", starts[0].ID)

	_, err = definition.Resolve("Missing")
	require.ErrorIs(t, err, models.ErrNodeNotFound)

	_, err = definition.Flow("f9")
	require.ErrorIs(t, err, models.ErrFlowNotFound)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		builder *testutil.DefinitionBuilder
		problem string
	}{
		{
			name: "duplicate node",
			builder: testutil.NewDefinition("dup").
				Node("Start", models.NodeTypeStartEvent).
				Node("Start", "endEvent"),
			problem: "duplicate node id Start",
		},
		{
			name: "dangling flow",
			builder: testutil.NewDefinition("dangling").
				Node("Start", models.NodeTypeStartEvent).
				Flow("f1", "Start", "Nowhere"),
			problem: "destination Nowhere does not exist",
		},
		{
			name: "orphan node",
			builder: testutil.NewDefinition("orphan").
				Node("Start", models.NodeTypeStartEvent).
				Node("Lonely", "userTask"),
			problem: "orphan node",
		},
		{
			name: "default flow not outgoing",
			builder: testutil.NewDefinition("default").
				Node("Start", models.NodeTypeStartEvent, testutil.WithDefault("f9")).
				Node("End", "endEvent").
				Flow("f1", "Start", "End"),
			problem: "default flow f9",
		},
		{
			name: "node in two processes",
			builder: testutil.NewDefinition("shared").
				Node("Start", models.NodeTypeStartEvent).
				Node("End", "endEvent").
				Flow("f1", "Start", "End").
				Process("p1", "Start", "End").
				Process("p2", "End"),
			problem: "belongs to more than one process",
		},
		{
			name: "boundary on missing host",
			builder: testutil.NewDefinition("boundary").
				Node("Start", models.NodeTypeStartEvent).
				Node("Timeout", models.NodeTypeBoundaryEvent, testutil.WithAttachedTo("Ghost")),
			problem: "attached to missing node Ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build().Compile()
			require.Error(t, err)
			assert.True(t, models.IsInvalidDefinition(err))

			var validationErr *models.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Contains(t, validationErr.Error(), tt.problem)
		})
	}
}

func TestCompile_RequiresNodes(t *testing.T) {
	err := (&models.WorkflowDefinition{ID: "empty", Name: "Empty"}).Compile()
	require.ErrorIs(t, err, models.ErrInvalidDefinition)
}

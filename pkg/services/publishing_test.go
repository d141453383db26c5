package services

import (
	"context"
	"testing"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishing_Publish_IncrementsVersion(t *testing.T) {
	f := newFixture(t)

	first := f.publish(t, approvalDefinition())
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, testNow, first.CreatedAt)

	second := f.publish(t, approvalDefinition())
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, testNow, second.CreatedAt)

	latest, err := f.publishing.Get(context.Background(), "approval")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	_, err = f.store.Definitions().GetVersion(context.Background(), "approval", 1)
	require.NoError(t, err)

	records, err := f.store.Events().FindByWorkflowID(context.Background(), "approval")
	require.NoError(t, err)
	require.Len(t, records, 1, "republishing replaces the start records")
	assert.Equal(t, "Start", records[0].NodeID)
	assert.Equal(t, models.EventKindStart, records[0].Kind)
}

func TestPublishing_Publish_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name       string
		definition *models.WorkflowDefinition
	}{
		{
			name:       "nil definition",
			definition: nil,
		},
		{
			name: "dangling flow",
			definition: testutil.NewDefinition("dangling").
				Node("Start", models.NodeTypeStartEvent).
				Flow("f1", "Start", "Nowhere").
				Build(),
		},
		{
			name: "unknown node type",
			definition: testutil.NewDefinition("unknown").
				Node("Start", models.NodeTypeStartEvent).
				Node("Mystery", "mysteryTask").
				Flow("f1", "Start", "Mystery").
				Build(),
		},
		{
			name: "orphan node",
			definition: testutil.NewDefinition("orphan").
				Node("Start", models.NodeTypeStartEvent).
				Node("End", "endEvent").
				Node("Lost", "endEvent").
				Flow("f1", "Start", "End").
				Build(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.publishing.Publish(context.Background(), tt.definition)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), err)

			definitions, err := f.publishing.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, definitions)
		})
	}
}

package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes(expression.NewEvaluator())

	return registry
}

func TestRegisterDefaultNodes(t *testing.T) {
	registry := newTestRegistry()

	expectedNodes := []string{
		"boundaryEvent",
		"endEvent",
		"exclusiveGateway",
		"httpTask",
		"inclusiveGateway",
		"logTask",
		"messageCatchEvent",
		"parallelGateway",
		"scriptTask",
		"serviceTask",
		"startEvent",
		"timerCatchEvent",
		"userTask",
	}

	available := registry.GetAvailableNodes()
	require.Len(t, available, len(expectedNodes))

	for i, factory := range available {
		assert.Equal(t, expectedNodes[i], factory.ID())
		assert.NotEmpty(t, factory.Name())
		assert.NotEmpty(t, factory.Description())
		assert.NotNil(t, factory.Schema())
	}
}

func TestResolve_UnknownType(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Resolve("sendTask")
	require.ErrorIs(t, err, ErrNodeTypeNotRegistered)
}

func TestCreateNode(t *testing.T) {
	registry := newTestRegistry()

	node, err := registry.CreateNode(context.Background(), testutil.CreateTestNode("wait", "timerCatchEvent",
		testutil.WithProperties(map[string]any{"duration": "5m"})))
	require.NoError(t, err)
	assert.Equal(t, "wait", node.ID())
	assert.NotNil(t, node.Behavior)

	_, err = registry.CreateNode(context.Background(), testutil.CreateTestNode("wait", "timerCatchEvent"))
	require.Error(t, err)
}

func TestValidateProperties(t *testing.T) {
	registry := newTestRegistry()

	tests := []struct {
		name       string
		nodeType   string
		properties map[string]any
		wantErr    bool
	}{
		{name: "valid message catch", nodeType: "messageCatchEvent", properties: map[string]any{"message": "paid"}},
		{name: "missing required message", nodeType: "messageCatchEvent", properties: map[string]any{}, wantErr: true},
		{name: "wrong type", nodeType: "userTask", properties: map[string]any{"required_fields": "comment"}, wantErr: true},
		{name: "nil properties", nodeType: "endEvent", properties: nil},
		{name: "unknown boundary kind", nodeType: "boundaryEvent", properties: map[string]any{"event": "signal"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.ValidateProperties(tt.nodeType, tt.properties)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateDefinition(t *testing.T) {
	registry := newTestRegistry()

	definition := testutil.NewDefinition("orders").
		Node("start", "startEvent").
		Node("script", "scriptTask", testutil.WithProperties(map[string]any{
			"assignments": map[string]any{"total": "price *"},
		})).
		Node("send", "sendTask").
		Flow("f1", "start", "script").
		Flow("f2", "script", "send").
		Build()

	err := registry.ValidateDefinition(context.Background(), definition)
	require.Error(t, err)
	assert.True(t, models.IsInvalidDefinition(err))

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Problems, 2)
}

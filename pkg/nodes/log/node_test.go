package log

import (
	"context"
	"testing"

	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogTask(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{name: "defaults to info", config: map[string]any{"message": "hello"}},
		{name: "explicit level", config: map[string]any{"message": "hello", "level": "warn"}},
		{name: "missing message", config: map[string]any{}, wantErr: "message"},
		{name: "unknown level", config: map[string]any{"message": "hello", "level": "trace"}, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogTask("Log", tt.config)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestLogTask_PassesThrough(t *testing.T) {
	task, err := NewLogTask("Log", map[string]any{"message": "order {{.vars.order_id}} received"})
	require.NoError(t, err)

	wctx := testutil.NewStubContext()
	wctx.Vars["order_id"] = "A-1"
	wctx.Connect(testutil.CreateTestFlow("next", "Log", "End"), nil)

	node := &protocol.NodeContext{Record: testutil.CreateTestNode("Log", TypeID), Behavior: task}

	result, err := task.Start(context.Background(), wctx, node, nil)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultOutcomes, result.Kind)
	assert.Equal(t, []string{"next"}, result.Flows)
}

func TestLogTask_BadTemplateFaults(t *testing.T) {
	task, err := NewLogTask("Log", map[string]any{"message": "{{.vars.broken"})
	require.NoError(t, err)

	result, err := task.Start(context.Background(), testutil.NewStubContext(), &protocol.NodeContext{Record: testutil.CreateTestNode("Log", TypeID)}, nil)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultFault, result.Kind)
}

func TestLevels(t *testing.T) {
	assert.Equal(t, []string{"debug", "error", "info", "warn"}, Levels())
}

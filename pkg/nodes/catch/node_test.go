package catch

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimer(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		config   map[string]any
		expected time.Time
		wantErr  bool
	}{
		{name: "duration", config: map[string]any{"duration": "90s"}, expected: now.Add(90 * time.Second)},
		{name: "cron", config: map[string]any{"cron": "30 14 * * *"}, expected: time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC)},
		{name: "at", config: map[string]any{"at": "2025-02-01T08:00:00Z"}, expected: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)},
		{name: "nothing set", config: map[string]any{}, wantErr: true},
		{name: "two set", config: map[string]any{"duration": "1m", "cron": "* * * * *"}, wantErr: true},
		{name: "negative duration", config: map[string]any{"duration": "-1m"}, wantErr: true},
		{name: "bad cron", config: map[string]any{"cron": "every day"}, wantErr: true},
		{name: "bad time", config: map[string]any{"at": "tomorrow"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer, err := ParseTimer(tt.config)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, timer.DueAt(now))
		})
	}
}

func TestMessage_CorrelationID(t *testing.T) {
	wctx := testutil.NewStubContext()
	wctx.Vars["order_id"] = "A-17"

	message, err := ParseMessage(map[string]any{"message": "paid"})
	require.NoError(t, err)

	key, err := message.CorrelationID(wctx)
	require.NoError(t, err)
	assert.Equal(t, "paid:wf-test", key)

	message, err = ParseMessage(map[string]any{"message": "paid", "correlation": "order-{{ .vars.order_id }}"})
	require.NoError(t, err)

	key, err = message.CorrelationID(wctx)
	require.NoError(t, err)
	assert.Equal(t, "order-A-17", key)

	_, err = ParseMessage(map[string]any{})
	require.ErrorContains(t, err, "missing required field 'message'")
}

func TestMessageCatchEvent(t *testing.T) {
	wctx := testutil.NewStubContext()
	wctx.Connect(testutil.CreateTestFlow("f1", "Catch", "Next"), nil)

	event, err := NewMessageCatchEvent("Catch", map[string]any{"message": "shipped"})
	require.NoError(t, err)

	node := &protocol.NodeContext{Record: testutil.CreateTestNode("Catch", MessageTypeID), Behavior: event}

	result, err := event.Start(context.Background(), wctx, node, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.ResultWaiting, result.Kind)
	assert.Equal(t, models.EventKindMessage, result.Wait.Kind)
	assert.Equal(t, "shipped:wf-test", result.Wait.CorrelationID)

	result, err = event.Resume(context.Background(), wctx, node)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, result.Flows)
}

func TestTimerCatchEvent(t *testing.T) {
	wctx := testutil.NewStubContext()

	event, err := NewTimerCatchEvent("Wait", map[string]any{"duration": "10m"})
	require.NoError(t, err)

	node := &protocol.NodeContext{Record: testutil.CreateTestNode("Wait", TimerTypeID), Behavior: event}

	result, err := event.Start(context.Background(), wctx, node, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Wait)
	assert.Equal(t, models.EventKindTimer, result.Wait.Kind)
	assert.Equal(t, "timer:wf-test:Wait", result.Wait.CorrelationID)
	require.NotNil(t, result.Wait.DueAt)
	assert.Equal(t, wctx.Clock.Add(10*time.Minute), *result.Wait.DueAt)
}

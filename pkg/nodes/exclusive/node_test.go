package exclusive

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, positive protocol.Flow, withDefault bool) (*ExclusiveGateway, *protocol.NodeContext, *testutil.StubContext, *protocol.FlowContext) {
	t.Helper()

	wctx := testutil.NewStubContext()
	incoming := wctx.Connect(testutil.CreateTestFlow("f0", "Start", "Gateway"), nil)
	wctx.Connect(testutil.CreateTestFlow("fx", "Other", "Gateway"), nil)
	wctx.Connect(testutil.CreateTestFlow("f1", "Gateway", "A", testutil.WithCondition("x > 0")), positive)
	wctx.Connect(testutil.CreateTestFlow("f2", "Gateway", "B"), nil)

	record := testutil.CreateTestNode("Gateway", TypeID)
	if withDefault {
		record.Default = "f2"
	}

	gateway, err := NewExclusiveGateway("Gateway", nil)
	require.NoError(t, err)

	return gateway, &protocol.NodeContext{Record: record, Behavior: gateway}, wctx, incoming
}

func TestExclusiveGateway_TakesFirstMatchingFlow(t *testing.T) {
	gateway, node, wctx, incoming := setup(t, testutil.Guard(true), true)

	result, err := gateway.Start(context.Background(), wctx, node, incoming)
	require.NoError(t, err)

	assert.Equal(t, protocol.Outcomes("f1"), result)
	require.NoError(t, gateway.PostExecuteCheck(context.Background(), wctx, node, result))
}

func TestExclusiveGateway_FallsBackToDefault(t *testing.T) {
	gateway, node, wctx, incoming := setup(t, testutil.Guard(false), true)

	result, err := gateway.Start(context.Background(), wctx, node, incoming)
	require.NoError(t, err)

	assert.Equal(t, []string{"f2"}, result.Flows)
}

func TestExclusiveGateway_UnconditionalFlowWins(t *testing.T) {
	gateway, node, wctx, incoming := setup(t, testutil.Guard(false), false)

	result, err := gateway.Start(context.Background(), wctx, node, incoming)
	require.NoError(t, err)

	// f2 has no guard and is not the default, so it holds
	assert.Equal(t, []string{"f2"}, result.Flows)
}

func TestExclusiveGateway_FaultsOnConcurrentArrivals(t *testing.T) {
	gateway, node, wctx, incoming := setup(t, testutil.Guard(true), true)
	wctx.ActiveFlows["fx"] = true

	result, err := gateway.Start(context.Background(), wctx, node, incoming)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultFault, result.Kind)
	assert.Contains(t, result.Reason, "more than one active incoming flow")
}

func TestExclusiveGateway_FaultsWithoutIncoming(t *testing.T) {
	gateway, node, wctx, _ := setup(t, testutil.Guard(true), true)

	result, err := gateway.Start(context.Background(), wctx, node, nil)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultFault, result.Kind)
}

func TestExclusiveGateway_GuardError(t *testing.T) {
	gateway, node, wctx, incoming := setup(t, testutil.FailingGuard{Err: errors.New("undefined: x")}, true)

	result, err := gateway.Start(context.Background(), wctx, node, incoming)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultFault, result.Kind)
	assert.Contains(t, result.Reason, "undefined: x")
}

func TestExclusiveGateway_PostExecuteCheck(t *testing.T) {
	gateway, node, wctx, _ := setup(t, nil, false)

	require.ErrorIs(t, gateway.PostExecuteCheck(context.Background(), wctx, node, protocol.Outcomes()), nodes.ErrStructural)
	require.ErrorIs(t, gateway.PostExecuteCheck(context.Background(), wctx, node, protocol.Outcomes("f1", "f2")), nodes.ErrStructural)
	require.NoError(t, gateway.PostExecuteCheck(context.Background(), wctx, node, protocol.Fault("boom")))
}

func TestExclusiveGateway_PossibleOutcomes(t *testing.T) {
	gateway, node, wctx, _ := setup(t, testutil.Guard(true), true)

	assert.Equal(t, []protocol.Outcome{
		{FlowID: "f1", Destination: "A", Condition: "x > 0"},
		{FlowID: "f2", Destination: "B", IsDefault: true},
	}, gateway.PossibleOutcomes(wctx, node))
}

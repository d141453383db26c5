package inclusive

import (
	"context"
	"testing"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, guards ...protocol.Flow) (*InclusiveGateway, *protocol.NodeContext, *testutil.StubContext) {
	t.Helper()

	wctx := testutil.NewStubContext()
	wctx.Connect(testutil.CreateTestFlow("in", "Start", "Join"), nil)
	wctx.Connect(testutil.CreateTestFlow("f1", "Join", "A"), guards[0])
	wctx.Connect(testutil.CreateTestFlow("f2", "Join", "B"), guards[1])
	wctx.Connect(testutil.CreateTestFlow("f3", "Join", "C"), nil)

	gateway, err := NewInclusiveGateway("Join", nil)
	require.NoError(t, err)

	record := testutil.CreateTestNode("Join", TypeID, testutil.WithDefault("f3"))

	return gateway, &protocol.NodeContext{Record: record, Behavior: gateway}, wctx
}

func TestInclusiveGateway_SelectsEveryMatchingFlow(t *testing.T) {
	gateway, node, wctx := setup(t, testutil.Guard(true), testutil.Guard(true))

	result, err := gateway.Start(context.Background(), wctx, node, wctx.Incoming["Join"][0])
	require.NoError(t, err)

	assert.Equal(t, protocol.Outcomes("f1", "f2"), result)
}

func TestInclusiveGateway_DefaultWhenNothingMatches(t *testing.T) {
	gateway, node, wctx := setup(t, testutil.Guard(false), testutil.Guard(false))

	result, err := gateway.Start(context.Background(), wctx, node, wctx.Incoming["Join"][0])
	require.NoError(t, err)

	assert.Equal(t, protocol.Outcomes("f3"), result)
}

func TestInclusiveGateway_WaitsForIncompletePaths(t *testing.T) {
	gateway, node, wctx := setup(t, testutil.Guard(true), testutil.Guard(true))
	wctx.Incomplete["Join"] = true

	result, err := gateway.Start(context.Background(), wctx, node, wctx.Incoming["Join"][0])
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultNoop, result.Kind)
	assert.Empty(t, result.Flows)
}

func TestInclusiveGateway_FiresOnce(t *testing.T) {
	gateway, node, wctx := setup(t, testutil.Guard(true), testutil.Guard(true))
	wctx.Finished["Join"] = true

	result, err := gateway.Start(context.Background(), wctx, node, wctx.Incoming["Join"][0])
	require.NoError(t, err)

	assert.Equal(t, protocol.ResultNoop, result.Kind)
}

func TestInclusiveGateway_PostExecuteCheck(t *testing.T) {
	gateway, node, wctx := setup(t, nil, nil)

	require.ErrorIs(t, gateway.PostExecuteCheck(context.Background(), wctx, node, protocol.Outcomes()), nodes.ErrStructural)
	require.NoError(t, gateway.PostExecuteCheck(context.Background(), wctx, node, protocol.Noop("waiting")))
}

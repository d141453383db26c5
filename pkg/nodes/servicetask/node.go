// Package servicetask provides the service task.
package servicetask

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/template"
)

// ServiceTask waits for a remote callback. A callback carrying a non-empty
// 'error' field faults the node.
type ServiceTask struct {
	nodes.Base

	id             string
	topic          string
	correlation    string
	resultVariable string
}

func NewServiceTask(id string, config map[string]any) (*ServiceTask, error) {
	topic, err := nodes.String(config, "topic")
	if err != nil {
		return nil, err
	}

	correlation, err := nodes.String(config, "correlation")
	if err != nil {
		return nil, err
	}

	resultVariable, err := nodes.String(config, "result_variable")
	if err != nil {
		return nil, err
	}

	return &ServiceTask{id: id, topic: topic, correlation: correlation, resultVariable: resultVariable}, nil
}

func (n *ServiceTask) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	correlationID, err := template.RenderString(n.correlation, wctx)
	if err != nil {
		return protocol.Fault(err.Error()), nil
	}

	result := protocol.Waiting(protocol.Wait{Kind: models.EventKindService, CorrelationID: correlationID})
	if n.topic != "" {
		result = result.WithReason("waiting for " + n.topic)
	}

	return result, nil
}

func (n *ServiceTask) Resume(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	input := wctx.Input()

	if message, ok := input["error"].(string); ok && message != "" {
		return protocol.Fault(fmt.Sprintf("service task %s failed: %s", n.id, message)), nil
	}

	if n.resultVariable == "" {
		return nodes.PassThrough(ctx, wctx, node), nil
	}

	assigned := map[string]any{n.resultVariable: input["result"]}

	return nodes.PassThrough(ctx, nodes.WithVariables(wctx, assigned), node).WithVariables(assigned), nil
}

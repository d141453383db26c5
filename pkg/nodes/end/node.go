// Package end provides the end event.
package end

import (
	"context"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

type EndEvent struct {
	nodes.Base

	id     string
	output []string
}

func NewEndEvent(id string, config map[string]any) (*EndEvent, error) {
	output, err := nodes.Strings(config, "output")
	if err != nil {
		return nil, err
	}

	return &EndEvent{id: id, output: output}, nil
}

func (n *EndEvent) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	result := protocol.Outcomes()

	if len(n.output) > 0 {
		output := make(map[string]any, len(n.output))
		variables := wctx.Variables()

		for _, name := range n.output {
			if value, ok := variables[name]; ok {
				output[name] = value
			}
		}

		result = result.WithOutput(output)
	}

	return result, nil
}

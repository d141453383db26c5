// Package end provides the end event node factory for registry integration.
package end

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "endEvent"

type EndEventFactory struct{}

func (f *EndEventFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewEndEvent(id, config)
}

func (f *EndEventFactory) ID() string {
	return TypeID
}

func (f *EndEventFactory) Name() string {
	return "End Event"
}

func (f *EndEventFactory) Description() string {
	return "Ends a path and optionally copies variables into the workflow output."
}

func (f *EndEventFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Variables copied into the workflow output",
			},
		},
	}
}

func NewEndEventFactory() protocol.NodeFactory {
	return &EndEventFactory{}
}

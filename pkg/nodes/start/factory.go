// Package start provides the start event node factory for registry integration.
package start

import (
	"context"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = models.NodeTypeStartEvent

type StartEventFactory struct{}

func (f *StartEventFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewStartEvent(id, config)
}

func (f *StartEventFactory) ID() string {
	return TypeID
}

func (f *StartEventFactory) Name() string {
	return "Start Event"
}

func (f *StartEventFactory) Description() string {
	return "Entry point of a process. Registered as a start event record when the definition is published."
}

func (f *StartEventFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correlation": map[string]any{
				"type":        "string",
				"description": "Correlation key that starts a new instance when dispatched",
			},
			"kind": map[string]any{
				"type":        "string",
				"enum":        []string{"start", "message", "timer"},
				"description": "Kind of signal starting the process",
			},
		},
	}
}

func NewStartEventFactory() protocol.NodeFactory {
	return &StartEventFactory{}
}

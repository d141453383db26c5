// Package boundary provides the boundary event node factory for registry integration.
package boundary

import (
	"context"
	"maps"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes/catch"
	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = models.NodeTypeBoundaryEvent

type BoundaryEventFactory struct{}

func (f *BoundaryEventFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewBoundaryEvent(id, config)
}

func (f *BoundaryEventFactory) ID() string {
	return TypeID
}

func (f *BoundaryEventFactory) Name() string {
	return "Boundary Event"
}

func (f *BoundaryEventFactory) Description() string {
	return "Armed while its host node waits; when it fires it continues along its own flows and, if interrupting, completes the host."
}

func (f *BoundaryEventFactory) Schema() map[string]any {
	properties := map[string]any{
		"event": map[string]any{
			"type": "string",
			"enum": []string{"message", "timer"},
		},
		"cancel_activity": map[string]any{
			"type":        "boolean",
			"description": "Interrupt the host when the event fires (default true)",
		},
		"message":     map[string]any{"type": "string"},
		"correlation": map[string]any{"type": "string"},
	}

	timer, _ := catch.TimerSchema()["properties"].(map[string]any)
	maps.Copy(properties, timer)

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   []string{"event"},
	}
}

func NewBoundaryEventFactory() protocol.NodeFactory {
	return &BoundaryEventFactory{}
}

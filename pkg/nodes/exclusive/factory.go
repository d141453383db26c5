// Package exclusive provides the exclusive gateway node factory for registry integration.
package exclusive

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "exclusiveGateway"

// ExclusiveGatewayFactory creates ExclusiveGateway instances.
type ExclusiveGatewayFactory struct{}

// Create creates a new ExclusiveGateway instance.
func (f *ExclusiveGatewayFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewExclusiveGateway(id, config)
}

// ID returns the factory ID.
func (f *ExclusiveGatewayFactory) ID() string {
	return TypeID
}

// Name returns the factory name.
func (f *ExclusiveGatewayFactory) Name() string {
	return "Exclusive Gateway"
}

// Description returns the factory description.
func (f *ExclusiveGatewayFactory) Description() string {
	return "Routes execution along the first outgoing flow whose condition holds, in declaration order, falling back to the default flow."
}

// Schema returns the JSON schema for Exclusive Gateway configuration.
func (f *ExclusiveGatewayFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": true,
	}
}

// NewExclusiveGatewayFactory creates a new factory instance.
func NewExclusiveGatewayFactory() protocol.NodeFactory {
	return &ExclusiveGatewayFactory{}
}

// Package inclusive provides the inclusive gateway node factory for registry integration.
package inclusive

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "inclusiveGateway"

// InclusiveGatewayFactory creates InclusiveGateway instances.
type InclusiveGatewayFactory struct{}

func (f *InclusiveGatewayFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewInclusiveGateway(id, config)
}

func (f *InclusiveGatewayFactory) ID() string {
	return TypeID
}

func (f *InclusiveGatewayFactory) Name() string {
	return "Inclusive Gateway"
}

func (f *InclusiveGatewayFactory) Description() string {
	return "Joins every upstream path that can still arrive, then fires all outgoing flows whose condition holds."
}

func (f *InclusiveGatewayFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": true,
	}
}

func NewInclusiveGatewayFactory() protocol.NodeFactory {
	return &InclusiveGatewayFactory{}
}

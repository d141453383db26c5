// Package parallel provides the parallel gateway node factory for registry integration.
package parallel

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "parallelGateway"

// ParallelGatewayFactory creates ParallelGateway instances.
type ParallelGatewayFactory struct{}

func (f *ParallelGatewayFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewParallelGateway(id, config)
}

func (f *ParallelGatewayFactory) ID() string {
	return TypeID
}

func (f *ParallelGatewayFactory) Name() string {
	return "Parallel Gateway"
}

func (f *ParallelGatewayFactory) Description() string {
	return "Waits until every incoming flow fired, then forks into all outgoing flows."
}

func (f *ParallelGatewayFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": true,
	}
}

func NewParallelGatewayFactory() protocol.NodeFactory {
	return &ParallelGatewayFactory{}
}

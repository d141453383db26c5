// Package servicetask provides the service task node factory for registry integration.
package servicetask

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "serviceTask"

type ServiceTaskFactory struct{}

func (f *ServiceTaskFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewServiceTask(id, config)
}

func (f *ServiceTaskFactory) ID() string {
	return TypeID
}

func (f *ServiceTaskFactory) Name() string {
	return "Service Task"
}

func (f *ServiceTaskFactory) Description() string {
	return "Hands work to a remote service and suspends until the service calls back through its event record."
}

func (f *ServiceTaskFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Name of the remote job, informational for workers",
			},
			"correlation": map[string]any{
				"type":        "string",
				"description": "Template rendering the callback correlation key",
			},
			"result_variable": map[string]any{
				"type":        "string",
				"description": "Variable receiving the 'result' field of the callback",
			},
		},
	}
}

func NewServiceTaskFactory() protocol.NodeFactory {
	return &ServiceTaskFactory{}
}

// Package usertask provides the user task node factory for registry integration.
package usertask

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "userTask"

type UserTaskFactory struct{}

func (f *UserTaskFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewUserTask(id, config)
}

func (f *UserTaskFactory) ID() string {
	return TypeID
}

func (f *UserTaskFactory) Name() string {
	return "User Task"
}

func (f *UserTaskFactory) Description() string {
	return "Suspends until a person completes the task, optionally requiring fields in the completion payload."
}

func (f *UserTaskFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assignee": map[string]any{
				"type":        "string",
				"description": "User or group expected to complete the task",
			},
			"correlation": map[string]any{
				"type":        "string",
				"description": "Template rendering the task correlation key",
			},
			"required_fields": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Fields the completion payload must contain",
			},
		},
	}
}

func NewUserTaskFactory() protocol.NodeFactory {
	return &UserTaskFactory{}
}

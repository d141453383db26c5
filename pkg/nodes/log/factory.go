package log

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "logTask"

type LogTaskFactory struct{}

func (f *LogTaskFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewLogTask(id, config)
}

func (f *LogTaskFactory) ID() string {
	return TypeID
}

func (f *LogTaskFactory) Name() string {
	return "Log Task"
}

func (f *LogTaskFactory) Description() string {
	return "Logs a templated message at the configured level, then continues"
}

func (f *LogTaskFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating over the workflow variables",
				"examples": []string{
					"Processing order {{.vars.order_id}}",
					"Workflow {{.workflow.id}} reached review",
				},
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    Levels(),
				"default": "info",
			},
		},
		"required": []string{"message"},
	}
}

func NewLogTaskFactory() protocol.NodeFactory {
	return &LogTaskFactory{}
}

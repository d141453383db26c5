// Package task provides the script task node factory for registry integration.
package task

import (
	"context"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/protocol"
)

const TypeID = "scriptTask"

// ScriptTaskFactory creates ScriptTask instances sharing one evaluator.
type ScriptTaskFactory struct {
	evaluator *expression.Evaluator
}

func (f *ScriptTaskFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewScriptTask(id, config, f.evaluator)
}

func (f *ScriptTaskFactory) ID() string {
	return TypeID
}

func (f *ScriptTaskFactory) Name() string {
	return "Script Task"
}

func (f *ScriptTaskFactory) Description() string {
	return "Evaluates expressions and stores their results as workflow variables, then continues."
}

func (f *ScriptTaskFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assignments": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
				"description":          "Variable name to expression, evaluated in name order",
				"examples": []map[string]any{
					{"total": "price * quantity", "approved": "total < 1000"},
				},
			},
		},
	}
}

func NewScriptTaskFactory(evaluator *expression.Evaluator) protocol.NodeFactory {
	return &ScriptTaskFactory{evaluator: evaluator}
}

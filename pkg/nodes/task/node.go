// Package task provides the script task.
package task

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

type ScriptTask struct {
	nodes.Base

	id          string
	assignments map[string]string
	evaluator   *expression.Evaluator
}

func NewScriptTask(id string, config map[string]any, evaluator *expression.Evaluator) (*ScriptTask, error) {
	assignments, err := nodes.StringMap(config, "assignments")
	if err != nil {
		return nil, err
	}

	for name, code := range assignments {
		if err := evaluator.Validate(expression.LanguageExpr, code); err != nil {
			return nil, fmt.Errorf("assignment '%s': %w", name, err)
		}
	}

	return &ScriptTask{id: id, assignments: assignments, evaluator: evaluator}, nil
}

func (n *ScriptTask) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	env := maps.Clone(wctx.Variables())
	if env == nil {
		env = map[string]any{}
	}

	assigned := make(map[string]any, len(n.assignments))

	for _, name := range slices.Sorted(maps.Keys(n.assignments)) {
		value, err := n.evaluator.Value(n.assignments[name], env)
		if err != nil {
			return protocol.Fault(fmt.Sprintf("assignment '%s': %v", name, err)), nil
		}

		env[name] = value
		assigned[name] = value
	}

	return nodes.PassThrough(ctx, nodes.WithVariables(wctx, assigned), node).WithVariables(assigned), nil
}

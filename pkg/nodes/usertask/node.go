// Package usertask provides the user task.
package usertask

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/template"
)

const UserField = "user"

type UserTask struct {
	nodes.Base

	id             string
	assignee       string
	correlation    string
	requiredFields []string
}

func NewUserTask(id string, config map[string]any) (*UserTask, error) {
	assignee, err := nodes.String(config, "assignee")
	if err != nil {
		return nil, err
	}

	correlation, err := nodes.String(config, "correlation")
	if err != nil {
		return nil, err
	}

	requiredFields, err := nodes.Strings(config, "required_fields")
	if err != nil {
		return nil, err
	}

	return &UserTask{id: id, assignee: assignee, correlation: correlation, requiredFields: requiredFields}, nil
}

func (n *UserTask) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	correlationID, err := template.RenderString(n.correlation, wctx)
	if err != nil {
		return protocol.Fault(err.Error()), nil
	}

	result := protocol.Waiting(protocol.Wait{Kind: models.EventKindUser, CorrelationID: correlationID})
	if n.assignee != "" {
		result = result.WithReason("assigned to " + n.assignee)
	}

	return result, nil
}

// Resume completes the task; an incomplete payload leaves it waiting.
func (n *UserTask) Resume(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	input := wctx.Input()

	var missing []string

	for _, field := range n.requiredFields {
		if _, ok := input[field]; !ok {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		result := protocol.Waiting(protocol.Wait{Kind: models.EventKindUser})

		return result.WithReason(fmt.Sprintf("missing fields: %s", strings.Join(missing, ", "))), nil
	}

	result := nodes.PassThrough(ctx, wctx, node)

	if user, ok := input[UserField].(string); ok {
		result.User = user
	}

	return result, nil
}

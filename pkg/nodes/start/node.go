// Package start provides the start event.
package start

import (
	"context"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

type StartEvent struct {
	nodes.Base

	id          string
	correlation string
	kind        models.EventKind
}

func NewStartEvent(id string, config map[string]any) (*StartEvent, error) {
	correlation, err := nodes.String(config, "correlation")
	if err != nil {
		return nil, err
	}

	kind, err := nodes.String(config, "kind")
	if err != nil {
		return nil, err
	}

	if kind == "" {
		kind = string(models.EventKindStart)
	}

	return &StartEvent{id: id, correlation: correlation, kind: models.EventKind(kind)}, nil
}

func (n *StartEvent) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	return nodes.PassThrough(ctx, wctx, node), nil
}

// Correlation is the key of the start event record.
func (n *StartEvent) Correlation() string {
	return n.correlation
}

func (n *StartEvent) Kind() models.EventKind {
	return n.kind
}

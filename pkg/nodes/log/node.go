// Package log provides the log task: it writes a templated message to the
// workflow logger and continues.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/template"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type LogTask struct {
	nodes.Base

	id      string
	message string
	level   slog.Level
}

func NewLogTask(id string, config map[string]any) (*LogTask, error) {
	message, err := nodes.RequiredString(config, "message")
	if err != nil {
		return nil, err
	}

	levelName, err := nodes.String(config, "level")
	if err != nil {
		return nil, err
	}

	if levelName == "" {
		levelName = "info"
	}

	level, ok := levels[levelName]
	if !ok {
		return nil, fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", levelName)
	}

	return &LogTask{id: id, message: message, level: level}, nil
}

func (n *LogTask) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	message, err := template.RenderString(n.message, wctx)
	if err != nil {
		return protocol.Fault(fmt.Sprintf("failed to render log message: %v", err)), nil
	}

	wctx.Logger().Log(ctx, n.level, message,
		"node_id", n.id,
		"workflow_id", wctx.WorkflowID(),
	)

	return nodes.PassThrough(ctx, wctx, node), nil
}

// Levels lists the accepted level names.
func Levels() []string {
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

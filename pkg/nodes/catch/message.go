package catch

import (
	"fmt"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/template"
)

// Message describes the message a catch node waits for.
type Message struct {
	name        string
	correlation string
}

// ParseMessage reads the message fields of a node configuration.
func ParseMessage(config map[string]any) (*Message, error) {
	name, err := nodes.RequiredString(config, "message")
	if err != nil {
		return nil, err
	}

	correlation, err := nodes.String(config, "correlation")
	if err != nil {
		return nil, err
	}

	return &Message{name: name, correlation: correlation}, nil
}

// CorrelationID renders the correlation template; without one, the key is the
// message name scoped to the workflow instance.
func (m *Message) CorrelationID(wctx protocol.Context) (string, error) {
	if m.correlation == "" {
		return m.name + ":" + wctx.WorkflowID(), nil
	}

	key, err := template.RenderString(m.correlation, wctx)
	if err != nil {
		return "", fmt.Errorf("failed to render correlation for message %s: %w", m.name, err)
	}

	return key, nil
}

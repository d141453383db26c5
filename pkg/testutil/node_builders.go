// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"testing"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/stretchr/testify/require"
)

// CreateTestNode creates a NodeRecord with default values that can be overridden.
func CreateTestNode(id, nodeType string, overrides ...func(*models.NodeRecord)) *models.NodeRecord {
	node := &models.NodeRecord{
		ID:         id,
		Type:       nodeType,
		Name:       "Test " + id,
		Properties: map[string]any{},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithProperties sets the node properties.
func WithProperties(properties map[string]any) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Properties = properties
	}
}

// WithDefault sets the default outgoing flow.
func WithDefault(flowID string) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Default = flowID
	}
}

// WithAttachedTo makes the node a boundary event of host.
func WithAttachedTo(host string) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.AttachedToRef = host
	}
}

// CreateTestFlow creates a FlowRecord between two nodes.
func CreateTestFlow(id, source, destination string, overrides ...func(*models.FlowRecord)) *models.FlowRecord {
	flow := &models.FlowRecord{
		ID:             id,
		SourceRef:      source,
		DestinationRef: destination,
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithCondition guards the flow with an expr condition.
func WithCondition(condition string) func(*models.FlowRecord) {
	return func(f *models.FlowRecord) {
		f.ConditionExpression = condition
	}
}

// DefinitionBuilder assembles workflow definitions for tests.
type DefinitionBuilder struct {
	definition *models.WorkflowDefinition
}

func NewDefinition(id string) *DefinitionBuilder {
	return &DefinitionBuilder{
		definition: &models.WorkflowDefinition{
			ID:      id,
			Name:    "Test " + id,
			Version: 1,
		},
	}
}

func (b *DefinitionBuilder) Node(id, nodeType string, overrides ...func(*models.NodeRecord)) *DefinitionBuilder {
	b.definition.Nodes = append(b.definition.Nodes, CreateTestNode(id, nodeType, overrides...))

	return b
}

func (b *DefinitionBuilder) Flow(id, source, destination string, overrides ...func(*models.FlowRecord)) *DefinitionBuilder {
	b.definition.Flows = append(b.definition.Flows, CreateTestFlow(id, source, destination, overrides...))

	return b
}

func (b *DefinitionBuilder) Process(id string, nodeIDs ...string) *DefinitionBuilder {
	b.definition.Processes = append(b.definition.Processes, &models.ProcessRecord{ID: id, NodeIDs: nodeIDs})

	return b
}

// Build returns the definition without compiling it.
func (b *DefinitionBuilder) Build() *models.WorkflowDefinition {
	return b.definition
}

// Compile returns the compiled definition and fails the test on validation errors.
func (b *DefinitionBuilder) Compile(t *testing.T) *models.WorkflowDefinition {
	t.Helper()

	require.NoError(t, b.definition.Compile())

	return b.definition
}

// Package registry maps node type tags to the factories producing their behavior.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrNodeTypeNotRegistered = errors.New("node type not registered")

// Registry is built once at startup and passed to whoever needs to resolve node types.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.logger.Debug("Registering node type", "type", factory.ID())
	r.factories[factory.ID()] = factory
}

// Resolve returns the factory registered for a node type.
func (r *Registry) Resolve(nodeType string) (protocol.NodeFactory, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNodeTypeNotRegistered, nodeType)
	}

	return factory, nil
}

// CreateNode builds the behavior of a node record.
func (r *Registry) CreateNode(ctx context.Context, record *models.NodeRecord) (*protocol.NodeContext, error) {
	factory, err := r.Resolve(record.Type)
	if err != nil {
		return nil, err
	}

	properties := record.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	behavior, err := factory.Create(ctx, record.ID, properties)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s (%s): %w", record.ID, record.Type, err)
	}

	return &protocol.NodeContext{Record: record, Behavior: behavior, Properties: properties}, nil
}

// GetAvailableNodes returns every registered factory sorted by type.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.factories))
	for _, factory := range r.factories {
		factories = append(factories, factory)
	}

	slices.SortFunc(factories, func(a, b protocol.NodeFactory) int {
		return strings.Compare(a.ID(), b.ID())
	})

	return factories
}

// ValidateProperties checks node properties against the JSON schema of its type.
func (r *Registry) ValidateProperties(nodeType string, properties map[string]any) error {
	factory, err := r.Resolve(nodeType)
	if err != nil {
		return err
	}

	if properties == nil {
		properties = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(factory.Schema()), gojsonschema.NewGoLoader(properties))
	if err != nil {
		return fmt.Errorf("failed to validate properties of %s: %w", nodeType, err)
	}

	if !result.Valid() {
		var problems []string
		for _, resultError := range result.Errors() {
			problems = append(problems, resultError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(problems, "; "))
	}

	return nil
}

// ValidateDefinition checks that every node type is known, its properties match the
// schema and the behavior can be built.
func (r *Registry) ValidateDefinition(ctx context.Context, definition *models.WorkflowDefinition) error {
	var problems []string

	for _, node := range definition.Nodes {
		if err := r.ValidateProperties(node.Type, node.Properties); err != nil {
			problems = append(problems, fmt.Sprintf("node %s: %v", node.ID, err))

			continue
		}

		if _, err := r.CreateNode(ctx, node); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return &models.ValidationError{DefinitionID: definition.ID, Problems: problems}
	}

	return nil
}

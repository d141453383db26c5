// Package models provides the graph model and runtime state of workflow instances.
package models

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// NodeTypeStartEvent is the type tag of entry nodes; they are the only nodes allowed without incoming flows.
	NodeTypeStartEvent = "startEvent"

	// NodeTypeBoundaryEvent is the type tag of events attached to another node.
	NodeTypeBoundaryEvent = "boundaryEvent"

	// DefaultProcessID names the implicit process created when a definition declares none.
	DefaultProcessID = "main"
)

var (
	ErrInvalidDefinition = errors.New("invalid workflow definition")
	ErrNodeNotFound      = errors.New("node not found")
	ErrFlowNotFound      = errors.New("flow not found")
)

// NodeRecord is the immutable description of a single node in a definition.
type NodeRecord struct {
	ID            string         `json:"id"                        validate:"required"`
	Type          string         `json:"type"                      validate:"required"`
	Name          string         `json:"name,omitempty"`
	Incomings     []string       `json:"incomings,omitempty"`
	Outgoings     []string       `json:"outgoings,omitempty"`
	AttachedToRef string         `json:"attached_to_ref,omitempty"`
	Default       string         `json:"default,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
}

// FlowRecord is a directed edge between two nodes, optionally guarded by a condition.
type FlowRecord struct {
	ID                  string `json:"id"                           validate:"required"`
	SourceRef           string `json:"source_ref"                   validate:"required"`
	DestinationRef      string `json:"destination_ref"              validate:"required"`
	ConditionExpression string `json:"condition_expression,omitempty"`
	ConditionLanguage   string `json:"condition_language,omitempty" validate:"omitempty,oneof=expr simple"`
}

// IsConditional reports whether the flow carries a guard.
func (f *FlowRecord) IsConditional() bool {
	return f.ConditionExpression != ""
}

// ProcessRecord groups nodes that share a completion status.
type ProcessRecord struct {
	ID      string   `json:"id"             validate:"required"`
	Name    string   `json:"name,omitempty"`
	NodeIDs []string `json:"node_ids"`
}

// WorkflowDefinition is the published, read-only graph of a workflow.
type WorkflowDefinition struct {
	ID        string           `json:"id"                  validate:"required"`
	Name      string           `json:"name"                validate:"required,min=1,max=255"`
	Version   int              `json:"version"`
	Nodes     []*NodeRecord    `json:"nodes"               validate:"required,min=1,dive,required"`
	Flows     []*FlowRecord    `json:"flows"               validate:"dive,required"`
	Processes []*ProcessRecord `json:"processes,omitempty" validate:"dive,required"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	indexOnce sync.Once
	nodes     map[string]*NodeRecord
	flows     map[string]*FlowRecord
	processOf map[string]string
}

// ValidationError describes every structural problem found while compiling a definition.
type ValidationError struct {
	DefinitionID string
	Problems     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("definition %s is invalid: %v", e.DefinitionID, e.Problems)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

// IsInvalidDefinition checks if an error was produced by a failed compilation.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

var definitionValidator = validator.New(validator.WithRequiredStructEnabled())

// Compile validates the graph and builds its lookup indexes. It must succeed before
// a definition is handed to the executor.
func (d *WorkflowDefinition) Compile() error {
	err := definitionValidator.Struct(d)
	if err != nil {
		return &ValidationError{DefinitionID: d.ID, Problems: []string{err.Error()}}
	}

	var problems []string

	problems = append(problems, duplicates("node", d.nodeIDs())...)
	problems = append(problems, duplicates("flow", d.flowIDs())...)
	problems = append(problems, duplicates("process", d.processIDs())...)

	if len(problems) > 0 {
		return &ValidationError{DefinitionID: d.ID, Problems: problems}
	}

	d.indexOnce.Do(d.buildIndex)

	for _, flow := range d.Flows {
		if _, ok := d.nodes[flow.SourceRef]; !ok {
			problems = append(problems, fmt.Sprintf("flow %s: source %s does not exist", flow.ID, flow.SourceRef))
		}

		if _, ok := d.nodes[flow.DestinationRef]; !ok {
			problems = append(problems, fmt.Sprintf("flow %s: destination %s does not exist", flow.ID, flow.DestinationRef))
		}
	}

	for _, node := range d.Nodes {
		problems = append(problems, d.checkNode(node)...)
	}

	owners := make(map[string]int)

	for _, process := range d.Processes {
		for _, nodeID := range process.NodeIDs {
			if _, ok := d.nodes[nodeID]; !ok {
				problems = append(problems, fmt.Sprintf("process %s: node %s does not exist", process.ID, nodeID))
			}

			owners[nodeID]++
		}
	}

	for _, node := range d.Nodes {
		switch owners[node.ID] {
		case 0:
			problems = append(problems, fmt.Sprintf("node %s does not belong to any process", node.ID))
		case 1:
		default:
			problems = append(problems, fmt.Sprintf("node %s belongs to more than one process", node.ID))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{DefinitionID: d.ID, Problems: problems}
	}

	return nil
}

func (d *WorkflowDefinition) checkNode(node *NodeRecord) []string {
	var problems []string

	expectedIn := d.flowsWhere(func(f *FlowRecord) bool { return f.DestinationRef == node.ID })
	expectedOut := d.flowsWhere(func(f *FlowRecord) bool { return f.SourceRef == node.ID })

	if !sameSet(node.Incomings, expectedIn) {
		problems = append(problems, fmt.Sprintf("node %s: incomings %v do not match flows %v", node.ID, node.Incomings, expectedIn))
	}

	if !sameSet(node.Outgoings, expectedOut) {
		problems = append(problems, fmt.Sprintf("node %s: outgoings %v do not match flows %v", node.ID, node.Outgoings, expectedOut))
	}

	if node.Default != "" && !slices.Contains(node.Outgoings, node.Default) {
		problems = append(problems, fmt.Sprintf("node %s: default flow %s is not an outgoing flow", node.ID, node.Default))
	}

	if node.AttachedToRef != "" {
		host, ok := d.nodes[node.AttachedToRef]

		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("node %s: attached to missing node %s", node.ID, node.AttachedToRef))
		case host.AttachedToRef != "":
			problems = append(problems, fmt.Sprintf("node %s: cannot attach to boundary node %s", node.ID, host.ID))
		case d.processOf[host.ID] != d.processOf[node.ID]:
			problems = append(problems, fmt.Sprintf("node %s: attached to node %s of another process", node.ID, host.ID))
		}
	}

	if len(node.Incomings) == 0 && node.Type != NodeTypeStartEvent && node.AttachedToRef == "" {
		problems = append(problems, fmt.Sprintf("node %s: orphan node, only start events may have no incoming flows", node.ID))
	}

	return problems
}

// buildIndex derives missing incomings/outgoings from the flows and creates the implicit process.
func (d *WorkflowDefinition) buildIndex() {
	d.nodes = make(map[string]*NodeRecord, len(d.Nodes))
	d.flows = make(map[string]*FlowRecord, len(d.Flows))
	d.processOf = make(map[string]string, len(d.Nodes))

	for _, node := range d.Nodes {
		d.nodes[node.ID] = node
	}

	for _, flow := range d.Flows {
		d.flows[flow.ID] = flow
	}

	for _, node := range d.Nodes {
		if len(node.Incomings) == 0 {
			node.Incomings = d.flowsWhere(func(f *FlowRecord) bool { return f.DestinationRef == node.ID })
		}

		if len(node.Outgoings) == 0 {
			node.Outgoings = d.flowsWhere(func(f *FlowRecord) bool { return f.SourceRef == node.ID })
		}
	}

	if len(d.Processes) == 0 {
		d.Processes = []*ProcessRecord{{ID: DefaultProcessID, Name: d.Name, NodeIDs: d.nodeIDs()}}
	}

	for _, process := range d.Processes {
		for _, nodeID := range process.NodeIDs {
			d.processOf[nodeID] = process.ID
		}
	}
}

func (d *WorkflowDefinition) index() {
	d.indexOnce.Do(d.buildIndex)
}

// Resolve returns the node with the given id.
func (d *WorkflowDefinition) Resolve(nodeID string) (*NodeRecord, error) {
	d.index()

	node, ok := d.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	return node, nil
}

// Flow returns the flow with the given id.
func (d *WorkflowDefinition) Flow(flowID string) (*FlowRecord, error) {
	d.index()

	flow, ok := d.flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, flowID)
	}

	return flow, nil
}

// OutgoingFlows returns the outgoing flows of a node in declaration order.
func (d *WorkflowDefinition) OutgoingFlows(nodeID string) []*FlowRecord {
	node, err := d.Resolve(nodeID)
	if err != nil {
		return nil
	}

	return d.lookupFlows(node.Outgoings)
}

// IncomingFlows returns the incoming flows of a node in declaration order.
func (d *WorkflowDefinition) IncomingFlows(nodeID string) []*FlowRecord {
	node, err := d.Resolve(nodeID)
	if err != nil {
		return nil
	}

	return d.lookupFlows(node.Incomings)
}

// ProcessOf returns the id of the process owning the node.
func (d *WorkflowDefinition) ProcessOf(nodeID string) string {
	d.index()

	return d.processOf[nodeID]
}

// StartNodes returns every start event in declaration order.
func (d *WorkflowDefinition) StartNodes() []*NodeRecord {
	var nodes []*NodeRecord

	for _, node := range d.Nodes {
		if node.Type == NodeTypeStartEvent {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// AttachedTo returns the boundary nodes attached to the given host.
func (d *WorkflowDefinition) AttachedTo(hostID string) []*NodeRecord {
	var nodes []*NodeRecord

	for _, node := range d.Nodes {
		if node.AttachedToRef == hostID {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

func (d *WorkflowDefinition) lookupFlows(ids []string) []*FlowRecord {
	flows := make([]*FlowRecord, 0, len(ids))

	for _, id := range ids {
		if flow, ok := d.flows[id]; ok {
			flows = append(flows, flow)
		}
	}

	return flows
}

func (d *WorkflowDefinition) flowsWhere(match func(*FlowRecord) bool) []string {
	var ids []string

	for _, flow := range d.Flows {
		if match(flow) {
			ids = append(ids, flow.ID)
		}
	}

	return ids
}

func (d *WorkflowDefinition) nodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, node := range d.Nodes {
		ids = append(ids, node.ID)
	}

	return ids
}

func (d *WorkflowDefinition) flowIDs() []string {
	ids := make([]string, 0, len(d.Flows))
	for _, flow := range d.Flows {
		ids = append(ids, flow.ID)
	}

	return ids
}

func (d *WorkflowDefinition) processIDs() []string {
	ids := make([]string, 0, len(d.Processes))
	for _, process := range d.Processes {
		ids = append(ids, process.ID)
	}

	return ids
}

func duplicates(kind string, ids []string) []string {
	var problems []string

	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			problems = append(problems, fmt.Sprintf("duplicate %s id %s", kind, id))
		}

		seen[id] = true
	}

	return problems
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}

	return true
}

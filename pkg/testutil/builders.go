// Package testutil provides workflow builders shared by tests.
package testutil

import (
	"github.com/google/uuid"

	"github.com/dukex/nodeflow/pkg/models"
)

// Node creates a named node of nodeType; the name defaults to the id.
func Node(id, nodeType string, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:   id,
		Type: nodeType,
		Name: id,
	}

	if node.IsTriggerNode() {
		node.Category = models.CategoryTypeTrigger
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Name = name
	}
}

// WithDisabled marks the node as disabled.
func WithDisabled() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Disabled = true
	}
}

// SetFields builds a set node configuration from name/value pairs.
func SetFields(pairs ...string) map[string]any {
	fields := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, map[string]any{"name": pairs[i], "value": pairs[i+1]})
	}

	return map[string]any{"fields": fields}
}

// Connect links two ports given as "node:port".
func Connect(sourcePort, targetPort string) *models.Connection {
	return &models.Connection{
		ID:         uuid.New().String(),
		SourcePort: sourcePort,
		TargetPort: targetPort,
	}
}

// Chain connects each node's success port to the main port of the next one.
func Chain(nodes ...*models.WorkflowNode) []*models.Connection {
	connections := make([]*models.Connection, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		connections = append(connections, Connect(nodes[i-1].ID+":success", nodes[i].ID+":main"))
	}

	return connections
}

// Workflow creates a workflow with the given status whose nodes run in order.
func Workflow(status models.WorkflowStatus, nodes ...*models.WorkflowNode) *models.Workflow {
	return &models.Workflow{
		Name:        "Test Workflow",
		Description: "A workflow for testing",
		Status:      status,
		Variables:   map[string]any{"env": "test"},
		Nodes:       nodes,
		Connections: Chain(nodes...),
	}
}

// Package models defines the core domain models for node-based workflow automation
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft       WorkflowStatus = "draft"       // Editable, not executable
	WorkflowStatusPublished   WorkflowStatus = "published"   // Current active, executable
	WorkflowStatusUnpublished WorkflowStatus = "unpublished" // Historical, not executable
)

// Workflow represents a node-based workflow.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"                validate:"required,min=3"`
	Description string          `json:"description"`
	Status      WorkflowStatus  `json:"status"              validate:"required"`
	Nodes       []*WorkflowNode `json:"nodes"               validate:"dive"`
	Connections []*Connection   `json:"connections"         validate:"dive"`
	Variables   map[string]any  `json:"variables"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Owner       string          `json:"owner"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// TriggerNodes returns the trigger nodes in declaration order.
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var out []*WorkflowNode

	for _, n := range w.Nodes {
		if n.IsTriggerNode() {
			out = append(out, n)
		}
	}

	return out
}

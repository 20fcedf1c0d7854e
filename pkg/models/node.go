// Package models defines core node-based workflow models for graph execution
package models

import (
	"strings"
	"time"
)

// CategoryType represents the category of node.
type CategoryType string

const (
	CategoryTypeAction  CategoryType = "action"  // Integrations and utilities (http, log, transform, etc.)
	CategoryTypeControl CategoryType = "control" // Control-flow primitives (conditional, switch, loop, etc.)
	CategoryTypeTrigger CategoryType = "trigger" // Trigger nodes (manual, webhook, scheduler, kafka)
)

// Built-in trigger node types.
const (
	NodeTypeTriggerManual    = "trigger:manual"
	NodeTypeTriggerWebhook   = "trigger:webhook"
	NodeTypeTriggerScheduler = "trigger:scheduler"
	NodeTypeTriggerKafka     = "trigger:kafka"
)

// Connection connects two ports directly (fully normalized).
type Connection struct {
	ID         string `json:"id"`
	SourcePort string `json:"source_port" validate:"required"` // References Port.ID: "{node_id}:{port_name}"
	TargetPort string `json:"target_port" validate:"required"` // References Port.ID: "{node_id}:{port_name}"
}

// WorkflowNode represents a node instance in a workflow.
type WorkflowNode struct {
	ID        string         `json:"id"         validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	Category  CategoryType   `json:"category"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
	Name      string         `json:"name"       validate:"required,min=1"`
	// Disabled nodes pass their input through unchanged.
	Disabled bool `json:"disabled,omitempty"`
}

func (n *WorkflowNode) IsTriggerNode() bool {
	return n.Category == CategoryTypeTrigger || strings.HasPrefix(n.Type, "trigger:")
}

// NodeStatus is the lifecycle state reported for one node invocation.
type NodeStatus string

const (
	NodeStatusLoading NodeStatus = "loading"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusError   NodeStatus = "error"
)

// StatusUpdate is what a node invocation reports to observers of a run.
type StatusUpdate struct {
	NodeID     string         `json:"nodeId"`
	Status     NodeStatus     `json:"status"`
	RunID      string         `json:"runId,omitempty"`
	WorkflowID string         `json:"workflowId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Extra      map[string]any `json:"extra,omitempty"`
}

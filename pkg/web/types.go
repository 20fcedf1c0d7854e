package web

import (
	"time"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/workflow"
)

// WorkflowRequest is the body of workflow create and replace calls.
type WorkflowRequest struct {
	Name        string                 `json:"name"        validate:"required,min=3"`
	Description string                 `json:"description"`
	Nodes       []*models.WorkflowNode `json:"nodes"`
	Connections []*models.Connection   `json:"connections"`
	Variables   map[string]any         `json:"variables"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
	Owner       string                 `json:"owner"`
}

func (r WorkflowRequest) workflow() *models.Workflow {
	nodes := r.Nodes
	if nodes == nil {
		nodes = []*models.WorkflowNode{}
	}

	connections := r.Connections
	if connections == nil {
		connections = []*models.Connection{}
	}

	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Nodes:       nodes,
		Connections: connections,
		Variables:   r.Variables,
		Metadata:    r.Metadata,
		Owner:       r.Owner,
	}
}

// RunWorkflowRequest starts a synchronous run.
type RunWorkflowRequest struct {
	TriggerNodeID string         `json:"triggerNodeId,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// RunWorkflowResponse is the run result plus the failure that ended it, if any.
type RunWorkflowResponse struct {
	*workflow.RunResult

	Error string `json:"error,omitempty"`
}

// ScheduleRequest configures the schedule of a scheduler trigger node.
// Enabled defaults to true.
type ScheduleRequest struct {
	ScheduleType   models.ScheduleType `json:"scheduleType"             validate:"required,oneof=INTERVAL DAILY WEEKLY MONTHLY CRON"`
	Timezone       string              `json:"timezone,omitempty"`
	IntervalValue  int                 `json:"intervalValue,omitempty"`
	IntervalUnit   models.IntervalUnit `json:"intervalUnit,omitempty"`
	Hour           int                 `json:"hour"`
	Minute         int                 `json:"minute"`
	DaysOfWeek     []int               `json:"daysOfWeek,omitempty"`
	DayOfMonth     int                 `json:"dayOfMonth,omitempty"`
	CronExpression string              `json:"cronExpression,omitempty"`
	Enabled        *bool               `json:"enabled,omitempty"`
	StartDate      *time.Time          `json:"startDate,omitempty"`
	EndDate        *time.Time          `json:"endDate,omitempty"`
}

func (r ScheduleRequest) schedule(workflowID, nodeID string) *models.Schedule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &models.Schedule{
		WorkflowID:     workflowID,
		NodeID:         nodeID,
		ScheduleType:   r.ScheduleType,
		Timezone:       r.Timezone,
		IntervalValue:  r.IntervalValue,
		IntervalUnit:   r.IntervalUnit,
		Hour:           r.Hour,
		Minute:         r.Minute,
		DaysOfWeek:     r.DaysOfWeek,
		DayOfMonth:     r.DayOfMonth,
		CronExpression: r.CronExpression,
		Enabled:        enabled,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
}

// NodeTypeResponse describes one registered node type.
type NodeTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/nodeflow/pkg/models"
)

type EventType string

// Topics.
const (
	Topic       = "nodeflow.events" // Workflow lifecycle events
	StatusTopic = "nodeflow.status" // Node status updates
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent EventType = "workflow.triggered"
	WorkflowFinishedEvent  EventType = "workflow.finished"
	WorkflowFailedEvent    EventType = "workflow.failed"

	NodeStatusChangedEvent EventType = "node.status.changed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowTriggered asks a worker to start a run of WorkflowID from
// TriggerNodeID with TriggerData as payload.
type WorkflowTriggered struct {
	BaseEvent

	RunID         string         `json:"run_id,omitempty"`
	TriggerNodeID string         `json:"trigger_node_id"`
	TriggerData   map[string]any `json:"trigger_data,omitempty"`
	// ScheduleID is set when a schedule timer fired the run.
	ScheduleID string `json:"schedule_id,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type WorkflowFinished struct {
	BaseEvent

	RunID    string         `json:"run_id"`
	Result   map[string]any `json:"result,omitempty"`
	Executed []string       `json:"executed,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (w WorkflowFinished) GetType() EventType {
	return WorkflowFinishedEvent
}

type WorkflowFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	NodeID   string        `json:"node_id,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

// NodeStatusChanged carries one node status update to realtime observers.
type NodeStatusChanged struct {
	BaseEvent

	Channel string              `json:"channel"`
	Update  models.StatusUpdate `json:"update"`
}

func (n NodeStatusChanged) GetType() EventType {
	return NodeStatusChangedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

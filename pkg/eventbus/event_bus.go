// Package eventbus provides event-driven communication infrastructure for workflow orchestration.
package eventbus

import (
	"context"

	"github.com/dukex/nodeflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.WorkflowTriggered.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// topicFor routes node status traffic apart from lifecycle events so
// realtime observers do not compete with workers.
func topicFor(eventType events.EventType) string {
	if eventType == events.NodeStatusChangedEvent {
		return events.StatusTopic
	}

	return events.Topic
}

func newEvent(eventType events.EventType) (any, bool) {
	switch eventType {
	case events.WorkflowTriggeredEvent:
		return &events.WorkflowTriggered{}, true
	case events.WorkflowFinishedEvent:
		return &events.WorkflowFinished{}, true
	case events.WorkflowFailedEvent:
		return &events.WorkflowFailed{}, true
	case events.NodeStatusChangedEvent:
		return &events.NodeStatusChanged{}, true
	default:
		return nil, false
	}
}

package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/nodeflow/pkg/events"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

const DefaultStatusBuffer = 256

type statusMessage struct {
	ctx     context.Context
	channel string
	update  models.StatusUpdate
}

// StatusPublisher publishes node status updates as NodeStatusChanged events
// from a single goroutine, so updates leave in the order they were published
// and Publish never waits on the broker.
type StatusPublisher struct {
	bus    EventPublisher
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan statusMessage
	done   chan struct{}
}

var _ protocol.StatusPublisher = (*StatusPublisher)(nil)

func NewStatusPublisher(bus EventPublisher, logger *slog.Logger, buffer int) *StatusPublisher {
	if buffer <= 0 {
		buffer = DefaultStatusBuffer
	}

	p := &StatusPublisher{
		bus:    bus,
		logger: logger.With("module", "status_publisher"),
		queue:  make(chan statusMessage, buffer),
		done:   make(chan struct{}),
	}

	go p.loop()

	return p
}

// Publish enqueues the update and returns at once. When the buffer is full,
// because the broker is slow or stalled, the update is dropped.
func (p *StatusPublisher) Publish(ctx context.Context, channel string, update models.StatusUpdate) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.WarnContext(ctx, "Status publisher closed, dropping update", "node_id", update.NodeID)

		return
	}

	select {
	case p.queue <- statusMessage{ctx: context.WithoutCancel(ctx), channel: channel, update: update}:
	default:
		p.logger.WarnContext(ctx, "Status buffer full, dropping update",
			"channel", channel,
			"node_id", update.NodeID,
			"status", update.Status,
		)
	}
}

func (p *StatusPublisher) loop() {
	defer close(p.done)

	for m := range p.queue {
		event := events.NodeStatusChanged{
			BaseEvent: events.NewBaseEvent(events.NodeStatusChangedEvent, m.update.WorkflowID),
			Channel:   m.channel,
			Update:    m.update,
		}

		if err := p.bus.Publish(m.ctx, m.channel, event); err != nil {
			p.logger.WarnContext(m.ctx, "Failed to publish status update",
				"channel", m.channel,
				"node_id", m.update.NodeID,
				"status", m.update.Status,
				"error", err,
			)
		}
	}
}

// Close flushes queued updates and stops the publisher.
func (p *StatusPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
}

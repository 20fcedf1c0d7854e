package eventbus

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/events"
	"github.com/dukex/nodeflow/pkg/models"
)

type recordingBus struct {
	mu     sync.Mutex
	keys   []string
	events []events.NodeStatusChanged
	err    error
}

func (b *recordingBus) Publish(_ context.Context, key string, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.keys = append(b.keys, key)
	b.events = append(b.events, event.(events.NodeStatusChanged))

	return b.err
}

func TestStatusPublisher_PreservesOrder(t *testing.T) {
	bus := &recordingBus{}
	publisher := NewStatusPublisher(bus, slog.Default(), 64)

	for i := range 50 {
		publisher.Publish(context.Background(), "run-channel", models.StatusUpdate{
			NodeID:     "node-" + strconv.Itoa(i),
			Status:     models.NodeStatusLoading,
			WorkflowID: "wf-1",
		})
	}

	publisher.Close()

	require.Len(t, bus.events, 50)

	for i, event := range bus.events {
		assert.Equal(t, "node-"+strconv.Itoa(i), event.Update.NodeID)
		assert.Equal(t, "run-channel", event.Channel)
		assert.Equal(t, "wf-1", event.WorkflowID)
		assert.Equal(t, "run-channel", bus.keys[i])
	}
}

func TestStatusPublisher_DropsAfterClose(t *testing.T) {
	bus := &recordingBus{}
	publisher := NewStatusPublisher(bus, slog.Default(), 0)

	publisher.Close()
	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "late"})
	publisher.Close()

	assert.Empty(t, bus.events)
}

func TestStatusPublisher_BrokerErrorsDoNotStopDelivery(t *testing.T) {
	bus := &recordingBus{err: errBroker}
	publisher := NewStatusPublisher(bus, slog.Default(), 4)

	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "a"})
	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "b"})
	publisher.Close()

	assert.Len(t, bus.events, 2)
}

func TestStatusPublisher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	bus := &blockingBus{release: block, started: make(chan struct{})}
	publisher := NewStatusPublisher(bus, slog.Default(), 1)

	// First update is taken by the worker and blocks; second fills the buffer.
	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "a"})
	<-bus.started
	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "b"})
	publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "dropped"})

	close(block)
	publisher.Close()

	assert.Equal(t, []string{"a", "b"}, bus.nodes())
}

func TestStatusPublisher_StalledBrokerNeverBlocksPublish(t *testing.T) {
	stalled := make(chan struct{})
	bus := &blockingBus{release: stalled, started: make(chan struct{})}
	publisher := NewStatusPublisher(bus, slog.Default(), 2)

	returned := make(chan struct{})

	go func() {
		defer close(returned)

		for i := range 5 {
			publisher.Publish(context.Background(), "c", models.StatusUpdate{NodeID: "n-" + strconv.Itoa(i)})
		}
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish waited on a stalled broker")
	}

	close(stalled)
	publisher.Close()

	assert.NotEmpty(t, bus.nodes())
	assert.LessOrEqual(t, len(bus.nodes()), 3)
}

type blockingBus struct {
	release  chan struct{}
	started  chan struct{}
	once     sync.Once
	mu       sync.Mutex
	received []string
}

func (b *blockingBus) Publish(_ context.Context, _ string, event Event) error {
	b.once.Do(func() { close(b.started) })
	<-b.release

	b.mu.Lock()
	defer b.mu.Unlock()

	b.received = append(b.received, event.(events.NodeStatusChanged).Update.NodeID)

	return nil
}

func (b *blockingBus) nodes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.received
}

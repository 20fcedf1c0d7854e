package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/channels/gochannel"
	"github.com/dukex/nodeflow/pkg/eventbus"
	"github.com/dukex/nodeflow/pkg/events"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence/file"
	"github.com/dukex/nodeflow/pkg/registry"
	"github.com/dukex/nodeflow/pkg/testutil"
	"github.com/dukex/nodeflow/pkg/workflow"
)

type workerFixture struct {
	bus       eventbus.EventBus
	workflows *workflow.Repository
	outcomes  chan any
}

func setupWorker(t *testing.T) workerFixture {
	t.Helper()

	logger := slog.Default()
	reg := registry.NewDefault(logger)

	pub, sub := gochannel.CreateChannel(logger)
	bus := eventbus.NewWatermillEventBus(pub, sub, logger)

	f := workerFixture{
		bus:       bus,
		workflows: workflow.NewRepository(file.NewPersistence(t.TempDir()), reg),
		outcomes:  make(chan any, 10),
	}

	worker := NewWorker("worker-test", f.workflows, workflow.NewExecutor(reg), bus, logger)
	require.NoError(t, worker.Register())

	collect := func(_ context.Context, event any) error {
		f.outcomes <- event

		return nil
	}

	require.NoError(t, bus.Handle(events.WorkflowFinishedEvent, collect))
	require.NoError(t, bus.Handle(events.WorkflowFailedEvent, collect))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx))

	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
	})

	return f
}

func (f workerFixture) createWorkflow(t *testing.T, status models.WorkflowStatus, nodes ...*models.WorkflowNode) *models.Workflow {
	t.Helper()

	wf, err := f.workflows.Create(context.Background(), testutil.Workflow(status, nodes...))
	require.NoError(t, err)

	return wf
}

func (f workerFixture) trigger(t *testing.T, workflowID, nodeID string, data map[string]any) any {
	t.Helper()

	err := f.bus.Publish(context.Background(), workflowID, events.WorkflowTriggered{
		BaseEvent:     events.NewBaseEvent(events.WorkflowTriggeredEvent, workflowID),
		RunID:         "run-1",
		TriggerNodeID: nodeID,
		TriggerData:   data,
	})
	require.NoError(t, err)

	select {
	case outcome := <-f.outcomes:
		return outcome
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome event received")

		return nil
	}
}

func TestWorker_RunsTriggeredWorkflow(t *testing.T) {
	f := setupWorker(t)

	wf := f.createWorkflow(t, models.WorkflowStatusPublished,
		testutil.Node("cron", models.NodeTypeTriggerScheduler),
		testutil.Node("greet", "set", testutil.WithConfig(testutil.SetFields("greeting", "fired {{trigger.scheduleId}}"))),
	)

	outcome := f.trigger(t, wf.ID, "cron", map[string]any{"scheduleId": "s-1"})

	finished, ok := outcome.(*events.WorkflowFinished)
	require.True(t, ok, "expected finished event, got %T", outcome)

	assert.Equal(t, wf.ID, finished.WorkflowID)
	assert.Equal(t, "run-1", finished.RunID)
	assert.Equal(t, "worker-test", finished.WorkerID)
	assert.Equal(t, []string{"cron", "greet"}, finished.Executed)
	assert.Equal(t, "fired s-1", finished.Result["greeting"])
}

func TestWorker_RejectsUnpublishedWorkflow(t *testing.T) {
	f := setupWorker(t)

	wf := f.createWorkflow(t, models.WorkflowStatusDraft,
		testutil.Node("start", models.NodeTypeTriggerManual),
	)

	outcome := f.trigger(t, wf.ID, "start", nil)

	failed, ok := outcome.(*events.WorkflowFailed)
	require.True(t, ok, "expected failed event, got %T", outcome)
	assert.Contains(t, failed.Error, "not executable")
}

func TestWorker_ReportsMissingWorkflow(t *testing.T) {
	f := setupWorker(t)

	outcome := f.trigger(t, "missing", "start", nil)

	failed, ok := outcome.(*events.WorkflowFailed)
	require.True(t, ok, "expected failed event, got %T", outcome)
	assert.Equal(t, "missing", failed.WorkflowID)
}

func TestWorker_ReportsFailedNode(t *testing.T) {
	f := setupWorker(t)

	wf := f.createWorkflow(t, models.WorkflowStatusPublished,
		testutil.Node("start", models.NodeTypeTriggerManual),
		testutil.Node("fetch", "httprequest", testutil.WithConfig(map[string]any{"url": "{{trigger.endpoint}}", "method": "GET"})),
	)

	outcome := f.trigger(t, wf.ID, "start", nil)

	failed, ok := outcome.(*events.WorkflowFailed)
	require.True(t, ok, "expected failed event, got %T", outcome)
	assert.Equal(t, "fetch", failed.NodeID)
	assert.Equal(t, "run-1", failed.RunID)
}

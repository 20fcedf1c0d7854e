package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/nodeflow/pkg/eventbus"
	"github.com/dukex/nodeflow/pkg/events"
	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/workflow"
)

// Worker runs workflows requested through WorkflowTriggered events and
// reports each outcome as WorkflowFinished or WorkflowFailed.
type Worker struct {
	id        string
	logger    *slog.Logger
	workflows *workflow.Repository
	executor  *workflow.Executor
	eventBus  eventbus.EventBus
}

func NewWorker(
	id string,
	workflows *workflow.Repository,
	executor *workflow.Executor,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:        id,
		logger:    logger.With("module", "worker", "worker_id", id),
		workflows: workflows,
		executor:  executor,
		eventBus:  eventBus,
	}
}

// Register installs the worker handlers; the caller subscribes the bus.
func (w *Worker) Register() error {
	return w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered)
}

// handleWorkflowTriggered only returns an error, and so asks for redelivery,
// when the workflow could not be loaded.
func (w *Worker) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowTriggered")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", triggered.WorkflowID,
		"trigger_node_id", triggered.TriggerNodeID,
		"event_id", triggered.ID,
	)
	logger.InfoContext(ctx, "Processing workflow triggered event")

	started := time.Now()

	wf, err := w.workflows.FetchByID(ctx, triggered.WorkflowID)
	if persistence.IsWorkflowNotFound(err) {
		w.publishFailed(ctx, triggered, "", err, started)

		return nil
	}

	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch workflow", "error", err)

		return err
	}

	if err := workflow.Executable(wf); err != nil {
		logger.WarnContext(ctx, "Ignoring trigger of a workflow that is not published", "status", wf.Status)
		w.publishFailed(ctx, triggered, "", err, started)

		return nil
	}

	result, err := w.executor.Run(ctx, wf, workflow.RunRequest{
		RunID:         triggered.RunID,
		TriggerNodeID: triggered.TriggerNodeID,
		TriggerData:   triggered.TriggerData,
		CallerID:      triggered.WorkerID,
	})
	if err != nil {
		nodeID := ""

		var runErr *workflow.RunError
		if errors.As(err, &runErr) {
			nodeID = runErr.NodeID
		}

		if result != nil {
			triggered.RunID = result.RunID
		}

		w.publishFailed(ctx, triggered, nodeID, err, started)

		return nil
	}

	finished := events.WorkflowFinished{
		BaseEvent: events.NewBaseEvent(events.WorkflowFinishedEvent, wf.ID),
		RunID:     result.RunID,
		Result:    result.Context.Map(),
		Executed:  result.Executed,
		Duration:  time.Since(started),
	}
	finished.WorkerID = w.id

	if err := w.eventBus.Publish(ctx, wf.ID, finished); err != nil {
		logger.ErrorContext(ctx, "Failed to publish workflow finished event", "error", err)
	}

	return nil
}

func (w *Worker) publishFailed(ctx context.Context, triggered *events.WorkflowTriggered, nodeID string, err error, started time.Time) {
	failed := events.WorkflowFailed{
		BaseEvent: events.NewBaseEvent(events.WorkflowFailedEvent, triggered.WorkflowID),
		RunID:     triggered.RunID,
		NodeID:    nodeID,
		Error:     err.Error(),
		Duration:  time.Since(started),
	}
	failed.WorkerID = w.id

	if publishErr := w.eventBus.Publish(ctx, triggered.WorkflowID, failed); publishErr != nil {
		w.logger.ErrorContext(ctx, "Failed to publish workflow failed event", "error", publishErr)
	}
}

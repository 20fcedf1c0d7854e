package registry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/otelhelper"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/step"
)

// Executor returns the executor of nodeType. Every call of the returned
// function publishes loading, then builds the node from its configuration and
// runs it, then publishes exactly one success or error update. Errors are
// returned as *failure.Error.
func (r *Registry) Executor(nodeType string) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	return func(ctx context.Context, inv protocol.Invocation) (models.ExecutionContext, error) {
		return r.execute(ctx, nodeType, factory, inv)
	}, nil
}

// MustExecutor is Executor for node types known to be registered.
func (r *Registry) MustExecutor(nodeType string) protocol.NodeExecutor {
	executor, err := r.Executor(nodeType)
	if err != nil {
		panic(err)
	}

	return executor
}

func (r *Registry) execute(ctx context.Context, nodeType string, factory protocol.NodeFactory, inv protocol.Invocation) (models.ExecutionContext, error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "node.execute",
		attribute.String(otelhelper.NodeIDKey, inv.NodeID),
		attribute.String(otelhelper.NodeTypeKey, nodeType),
		attribute.String(otelhelper.RunIDKey, inv.RunID),
		attribute.String(otelhelper.WorkflowIDKey, inv.WorkflowID),
	)
	defer span.End()

	publisher := inv.Publisher
	if publisher == nil {
		publisher = protocol.NopPublisher{}
	}

	publish := func(status models.NodeStatus, extra map[string]any) {
		publisher.Publish(ctx, inv.Channel, models.StatusUpdate{
			NodeID:     inv.NodeID,
			Status:     status,
			RunID:      inv.RunID,
			WorkflowID: inv.WorkflowID,
			Timestamp:  time.Now().UTC(),
			Extra:      extra,
		})
	}

	publish(models.NodeStatusLoading, nil)

	logger := r.logger.With("node_id", inv.NodeID, "node_type", nodeType, "run_id", inv.RunID)

	fail := func(err error) (models.ExecutionContext, error) {
		fe := failure.Classify(err, modelHint(inv.Config))

		logger.WarnContext(ctx, "Node failed", "error_code", fe.ErrorCode, "error", fe.Message)
		otelhelper.SetError(span, fe, attribute.String("error.code", fe.ErrorCode))
		publish(models.NodeStatusError, fe.Map())

		return inv.Context, fe
	}

	node, err := factory.Create(ctx, inv.NodeID, inv.Config)
	if err != nil {
		return fail(err)
	}

	steps := inv.Step
	if steps == nil {
		steps = step.NewRunner(step.NewMemoryJournal(), inv.RunID, step.WithLogger(r.logger))
	}

	env := protocol.Env{
		NodeID:     inv.NodeID,
		CallerID:   inv.CallerID,
		RunID:      inv.RunID,
		WorkflowID: inv.WorkflowID,
		Scope:      inv.Scope,
		Step:       steps,
		Logger:     logger,
	}

	out, err := run(ctx, node, env, inv.Context)
	if err != nil {
		return fail(err)
	}

	publish(models.NodeStatusSuccess, nil)

	return out, nil
}

// run calls node.Execute, turning a panic into an error so the caller still
// publishes a terminal status.
func run(ctx context.Context, node protocol.Node, env protocol.Env, execCtx models.ExecutionContext) (out models.ExecutionContext, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("node %s panicked: %v", node.ID(), rec)
		}
	}()

	return node.Execute(ctx, env, execCtx)
}

func modelHint(config map[string]any) string {
	model, _ := config["model"].(string)

	return model
}

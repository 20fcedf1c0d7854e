package protocol

import (
	"context"
	"time"

	"github.com/dukex/nodeflow/pkg/models"
)

// Invocation is everything one node execution receives.
type Invocation struct {
	Config     map[string]any
	NodeID     string
	Context    models.ExecutionContext
	CallerID   string
	RunID      string
	WorkflowID string
	Scope      string
	// Channel is the realtime channel status updates are published on.
	Channel   string
	Step      StepRunner
	Publisher StatusPublisher
}

// NodeExecutor runs one node type. Implementations publish exactly one loading
// update followed by exactly one success or error update per call.
type NodeExecutor func(ctx context.Context, inv Invocation) (models.ExecutionContext, error)

// StepFunc is the body of a durable step. Its result must be JSON serializable.
type StepFunc func(ctx context.Context) (any, error)

// StepRunner provides durable, memoized steps. A completed step is not re-run
// when the same run replays: its recorded result is returned instead.
type StepRunner interface {
	Run(ctx context.Context, name string, fn StepFunc) (any, error)
	Sleep(ctx context.Context, name string, d time.Duration) error
	// Generate is Run for long-running generation calls; it is never retried.
	Generate(ctx context.Context, name string, fn StepFunc) (any, error)
}

// StatusPublisher reports node status to observers. Publishing is fire-and-forget.
type StatusPublisher interface {
	Publish(ctx context.Context, channel string, update models.StatusUpdate)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, models.StatusUpdate) {}

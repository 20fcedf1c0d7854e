// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/nodeflow/pkg/models"
)

// Node is a configured node instance ready to run.
type Node interface {
	ID() string
	// Execute consumes the incoming context and returns the next one. It must not
	// publish status updates; the registry executor does that around it.
	Execute(ctx context.Context, env Env, execCtx models.ExecutionContext) (models.ExecutionContext, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}

// Env carries the run-scoped collaborators a node may use while executing.
type Env struct {
	NodeID     string
	CallerID   string
	RunID      string
	WorkflowID string
	// Scope is appended to step names, e.g. "#3" inside the fourth loop iteration.
	Scope  string
	Step   StepRunner
	Logger *slog.Logger
}

// StepName returns the durable step name "<nodeId>:<operation>[#iteration...]".
func (e Env) StepName(operation string) string {
	return e.NodeID + ":" + operation + e.Scope
}

// Log returns the node logger, falling back to the default logger.
func (e Env) Log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.Default()
}

// Result returns the node output: the incoming context plus outputVariable, or
// only outputVariable when replace is set.
func Result(execCtx models.ExecutionContext, outputVariable string, value any, replace bool) models.ExecutionContext {
	if replace {
		return models.ExecutionContext{}.With(outputVariable, value)
	}

	return execCtx.With(outputVariable, value)
}

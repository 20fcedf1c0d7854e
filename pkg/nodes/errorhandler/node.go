// Package errorhandler provides the error handler node. It is connected to
// another node's error port and turns the error carried in the context into a
// regular variable.
package errorhandler

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
)

type Config struct {
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

type ErrorHandlerNode struct {
	id     string
	config Config
}

func NewErrorHandlerNode(id string, config map[string]any) (*ErrorHandlerNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "failure")

	return &ErrorHandlerNode{id: id, config: cfg}, nil
}

func (n *ErrorHandlerNode) ID() string {
	return n.id
}

// Execute moves __error into the output variable. Without a carried error the
// output variable is set to null.
func (n *ErrorHandlerNode) Execute(_ context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	carried := execCtx.Value(models.ErrorKey)
	if carried == nil {
		env.Log().Warn("Error handler reached without a carried error", "node_id", n.id)
	}

	return execCtx.Without(models.ErrorKey).With(n.config.OutputVariable, carried), nil
}

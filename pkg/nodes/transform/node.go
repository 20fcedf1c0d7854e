// Package transform provides the data transformation node, which reshapes
// context data with a jq filter.
package transform

import (
	"context"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	OutputPortSuccess = models.PortSuccess
	OutputPortError   = models.PortError
	InputPortMain     = models.PortMain
)

type Config struct {
	// Expression is a jq filter.
	Expression string `json:"expression" validate:"required"`
	// Input is the context path the filter runs on; empty means the whole context.
	Input          string `json:"input"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool   `json:"replaceContext"`
}

// TransformNode implements data transformation with jq.
type TransformNode struct {
	id     string
	config Config
}

// NewTransformNode creates a new data transformation node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if err := template.CompileJQ(cfg.Expression); err != nil {
		return nil, failure.Config("expression", err.Error())
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "result")

	return &TransformNode{id: id, config: cfg}, nil
}

// ID returns the node ID.
func (n *TransformNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TransformNode) Type() string {
	return "transform"
}

// Execute runs the filter. A single emitted value is stored as is, several
// values as an array and no value as null.
func (n *TransformNode) Execute(_ context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	var input any = execCtx.Map()
	if n.config.Input != "" {
		input, _ = template.Lookup(input, n.config.Input)
	}

	results, err := template.JQ(n.config.Expression, input)
	if err != nil {
		env.Log().Warn("Transformation failed", "node_id", n.id, "error", err)

		return execCtx, failure.Classify(err, "")
	}

	var result any

	switch len(results) {
	case 0:
	case 1:
		result = results[0]
	default:
		result = results
	}

	return protocol.Result(execCtx, n.config.OutputVariable, result, n.config.ReplaceContext), nil
}

// Package conditional provides the conditional and filter nodes: a list of
// conditions combined with AND/OR that selects the true or false route.
package conditional

import (
	"context"
	"strings"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
)

const (
	OutputPortTrue  = models.PortTrue
	OutputPortFalse = models.PortFalse
	OutputPortError = models.PortError
	InputPortMain   = models.PortMain

	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

// Config is the configuration shared by conditional and filter nodes.
type Config struct {
	Conditions      []Condition `json:"conditions"      validate:"required,min=1,dive"`
	LogicalOperator string      `json:"logicalOperator" validate:"omitempty,oneof=AND OR and or"`
	OutputVariable  string      `json:"outputVariable"  validate:"omitempty,varname"`
	ReplaceContext  bool        `json:"replaceContext"`
}

// ConditionalNode evaluates its conditions and routes to the true or false port.
type ConditionalNode struct {
	id     string
	config Config
}

// NewConditionalNode creates a new conditional branching node.
func NewConditionalNode(id string, config map[string]any) (*ConditionalNode, error) {
	return newNode(id, config, "condition")
}

func newNode(id string, config map[string]any, defaultOutput string) (*ConditionalNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	cfg.LogicalOperator = strings.ToUpper(cfg.LogicalOperator)
	if cfg.LogicalOperator == "" {
		cfg.LogicalOperator = LogicalAnd
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, defaultOutput)

	return &ConditionalNode{id: id, config: cfg}, nil
}

// ID returns the node ID.
func (n *ConditionalNode) ID() string {
	return n.id
}

// Execute evaluates every condition in order and records which branch was taken.
func (n *ConditionalNode) Execute(_ context.Context, _ protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	results := make([]any, len(n.config.Conditions))
	or := n.config.LogicalOperator == LogicalOr
	passed := !or

	for i, cond := range n.config.Conditions {
		ok := cond.Evaluate(execCtx)
		results[i] = ok

		if or {
			passed = passed || ok
		} else {
			passed = passed && ok
		}
	}

	branch := OutputPortFalse
	if passed {
		branch = OutputPortTrue
	}

	out := protocol.Result(execCtx, n.config.OutputVariable, map[string]any{
		"passed":           passed,
		"branch":           branch,
		"logicalOperator":  n.config.LogicalOperator,
		"conditionResults": results,
	}, n.config.ReplaceContext)

	return out.With(models.BranchKey, branch), nil
}

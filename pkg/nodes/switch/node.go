// Package switchnode provides the multi-way switch node. The package lives in
// the switch directory; switch is a Go keyword.
package switchnode

import (
	"context"
	"fmt"

	"github.com/dukex/nodeflow/pkg/expression"
	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	ModeRules      = "rules"
	ModeExpression = "expression"

	BranchFallback   = "fallback"
	BranchExpression = "expression"

	InputPortMain = models.PortMain
)

// Rule routes to Output when Condition is truthy.
type Rule struct {
	Name      string `json:"name"`
	Condition string `json:"condition" validate:"required"`
	Output    int    `json:"output"    validate:"min=0"`
}

type Config struct {
	Mode           string `json:"mode"           validate:"omitempty,oneof=rules expression"`
	Rules          []Rule `json:"rules"          validate:"dive"`
	Expression     string `json:"expression"     validate:"required_if=Mode expression"`
	FallbackOutput int    `json:"fallbackOutput" validate:"min=0"`
	// OutputCount bounds expression results to [0, OutputCount) when set.
	OutputCount    int    `json:"outputCount"    validate:"min=0"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool   `json:"replaceContext"`
}

// SwitchNode selects one numbered output port, output_<n>.
type SwitchNode struct {
	id     string
	config Config
}

// NewSwitchNode creates a new switch node.
func NewSwitchNode(id string, config map[string]any) (*SwitchNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeRules
	}

	if cfg.OutputCount > 0 && cfg.FallbackOutput >= cfg.OutputCount {
		return nil, failure.Config("fallbackOutput", fmt.Sprintf("must be lower than outputCount (%d)", cfg.OutputCount))
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "switch")

	return &SwitchNode{id: id, config: cfg}, nil
}

// ID returns the node ID.
func (n *SwitchNode) ID() string {
	return n.id
}

// Execute picks the output and stores it under the switch output carrier for the router.
func (n *SwitchNode) Execute(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	var (
		branch string
		output int
	)

	if n.config.Mode == ModeExpression {
		branch, output = n.evaluateExpression(ctx, env, execCtx)
	} else {
		branch, output = n.evaluateRules(ctx, env, execCtx)
	}

	out := protocol.Result(execCtx, n.config.OutputVariable, map[string]any{
		"matchedBranch": branch,
		"matchedOutput": output,
		"mode":          n.config.Mode,
	}, n.config.ReplaceContext)

	return out.With(models.SwitchOutputKey, output), nil
}

func (n *SwitchNode) evaluateRules(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (string, int) {
	vars := execCtx.Map()

	for i, rule := range n.config.Rules {
		condition := template.Resolve(rule.Condition, execCtx)

		matched, err := expression.EvaluateBool(condition, vars)
		if err != nil {
			env.Log().WarnContext(ctx, "Switch rule could not be evaluated",
				"node_id", n.id,
				"rule", i,
				"condition", condition,
				"error", err,
			)

			continue
		}

		if matched {
			name := rule.Name
			if name == "" {
				name = fmt.Sprintf("rule_%d", i)
			}

			return name, rule.Output
		}
	}

	return BranchFallback, n.config.FallbackOutput
}

func (n *SwitchNode) evaluateExpression(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (string, int) {
	formula := template.Resolve(n.config.Expression, execCtx)

	index, err := expression.EvaluateInt(formula, execCtx.Map())
	if err != nil {
		env.Log().WarnContext(ctx, "Switch expression failed, using fallback output",
			"node_id", n.id,
			"expression", formula,
			"error", err,
		)

		return BranchFallback, n.config.FallbackOutput
	}

	if index < 0 || (n.config.OutputCount > 0 && index >= n.config.OutputCount) {
		env.Log().WarnContext(ctx, "Switch expression out of range, using fallback output",
			"node_id", n.id,
			"index", index,
			"output_count", n.config.OutputCount,
		)

		return BranchFallback, n.config.FallbackOutput
	}

	return BranchExpression, index
}

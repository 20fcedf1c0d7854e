package switchnode

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

// SwitchNodeFactory creates SwitchNode instances.
type SwitchNodeFactory struct{}

// Create creates a new SwitchNode instance.
func (f *SwitchNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSwitchNode(id, config)
}

// ID returns the factory ID.
func (f *SwitchNodeFactory) ID() string {
	return "switch"
}

// Name returns the factory name.
func (f *SwitchNodeFactory) Name() string {
	return "Switch"
}

// Description returns the factory description.
func (f *SwitchNodeFactory) Description() string {
	return "Multi-way branching node that routes execution to a numbered output chosen by rules or an expression"
}

// Schema returns the JSON schema for Switch node configuration.
func (f *SwitchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{ModeRules, ModeExpression},
				"default": ModeRules,
			},
			"rules": map[string]any{
				"type":        "array",
				"description": "Ordered rules; the first rule whose condition is truthy wins",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"condition": map[string]any{"type": "string", "description": "Formula, templated before evaluation"},
						"output":    map[string]any{"type": "integer", "minimum": 0},
					},
					"required": []string{"condition", "output"},
				},
			},
			"expression": map[string]any{
				"type":        "string",
				"description": "Formula evaluating to the output index (expression mode)",
			},
			"fallbackOutput": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"default": 0,
			},
			"outputCount": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Number of outputs; expression results outside the range use fallbackOutput",
			},
			"outputVariable": map[string]any{"type": "string", "default": "switch"},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
		"examples": []map[string]any{
			{
				"mode": ModeRules,
				"rules": []map[string]any{
					{"name": "vip", "condition": `customer.tier == "gold"`, "output": 0},
					{"name": "large", "condition": "order.total > 500", "output": 1},
				},
				"fallbackOutput": 2,
			},
			{
				"mode":        ModeExpression,
				"expression":  "{{order.priority}} - 1",
				"outputCount": 3,
			},
		},
	}
}

// NewSwitchNodeFactory creates a new factory instance.
func NewSwitchNodeFactory() protocol.NodeFactory {
	return &SwitchNodeFactory{}
}

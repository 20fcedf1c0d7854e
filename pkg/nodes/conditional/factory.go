package conditional

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

// ConditionalNodeFactory creates ConditionalNode instances.
type ConditionalNodeFactory struct{}

// Create creates a new ConditionalNode instance.
func (f *ConditionalNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewConditionalNode(id, config)
}

// ID returns the factory ID.
func (f *ConditionalNodeFactory) ID() string {
	return "conditional"
}

// Name returns the factory name.
func (f *ConditionalNodeFactory) Name() string {
	return "Conditional"
}

// Description returns the factory description.
func (f *ConditionalNodeFactory) Description() string {
	return "Evaluates a list of conditions and routes execution to the true or false path."
}

// Schema returns the JSON schema for Conditional node configuration.
func (f *ConditionalNodeFactory) Schema() map[string]any {
	return conditionSchema("condition")
}

// NewConditionalNodeFactory creates a new factory instance.
func NewConditionalNodeFactory() protocol.NodeFactory {
	return &ConditionalNodeFactory{}
}

// FilterNodeFactory creates filter nodes.
type FilterNodeFactory struct{}

func (f *FilterNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewFilterNode(id, config)
}

func (f *FilterNodeFactory) ID() string {
	return "filter"
}

func (f *FilterNodeFactory) Name() string {
	return "Filter"
}

func (f *FilterNodeFactory) Description() string {
	return "Continues the run only when the conditions pass."
}

func (f *FilterNodeFactory) Schema() map[string]any {
	return conditionSchema("filter")
}

func NewFilterNodeFactory() protocol.NodeFactory {
	return &FilterNodeFactory{}
}

func conditionSchema(defaultOutput string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"conditions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field": map[string]any{
							"type":        "string",
							"description": "Context path (user.age) or template ({{user.age}}) to test",
						},
						"operator": map[string]any{
							"type": "string",
							"enum": []string{
								OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith, OpEndsWith,
								OpGreaterThan, OpLessThan, OpGreaterThanOrEquals, OpLessThanOrEquals,
								OpIsEmpty, OpIsNotEmpty, OpIsTrue, OpIsFalse, OpRegexMatch,
							},
						},
						"value": map[string]any{
							"description": "Value to compare against; strings are templated",
						},
					},
					"required": []string{"field", "operator"},
				},
			},
			"logicalOperator": map[string]any{
				"type":    "string",
				"enum":    []string{LogicalAnd, LogicalOr, "and", "or"},
				"default": LogicalAnd,
			},
			"outputVariable": map[string]any{
				"type":    "string",
				"default": defaultOutput,
			},
			"replaceContext": map[string]any{
				"type":    "boolean",
				"default": false,
			},
		},
		"required": []string{"conditions"},
		"examples": []map[string]any{
			{
				"conditions": []map[string]any{
					{"field": "order.total", "operator": OpGreaterThan, "value": 100},
					{"field": "{{order.status}}", "operator": OpEquals, "value": "paid"},
				},
				"logicalOperator": LogicalAnd,
			},
		},
	}
}

package set

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type SetNodeFactory struct{}

func (f *SetNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSetNode(id, config)
}

func (f *SetNodeFactory) ID() string {
	return "set"
}

func (f *SetNodeFactory) Name() string {
	return "Set"
}

func (f *SetNodeFactory) Description() string {
	return "Sets typed variables in the execution context from literals, templates or expressions"
}

func (f *SetNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":    "string",
							"pattern": "^[A-Za-z_][A-Za-z0-9_]*$",
						},
						"value": map[string]any{
							"description": "Literal or template; a formula for the expression type",
						},
						"type": map[string]any{
							"type":    "string",
							"enum":    []string{TypeString, TypeNumber, TypeBoolean, TypeJSON, TypeExpression},
							"default": TypeString,
						},
					},
					"required": []string{"name"},
				},
			},
			"keepOnlySet": map[string]any{
				"type":        "boolean",
				"description": "Drop every incoming variable and keep only the fields set here",
				"default":     false,
			},
		},
		"required": []string{"fields"},
		"examples": []map[string]any{
			{
				"fields": []map[string]any{
					{"name": "total", "value": "{{order.total}}", "type": "number"},
					{"name": "vip", "value": "total > 100", "type": "expression"},
				},
			},
		},
	}
}

func NewSetNodeFactory() protocol.NodeFactory {
	return &SetNodeFactory{}
}

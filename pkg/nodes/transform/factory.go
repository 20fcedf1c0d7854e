// Package transform provides data transformation node factory for registry integration.
package transform

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

// Create creates a new TransformNode instance.
func (f *TransformNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewTransformNode(id, config)
}

// ID returns the factory ID.
func (f *TransformNodeFactory) ID() string {
	return "transform"
}

// Name returns the factory name.
func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

// Description returns the factory description.
func (f *TransformNodeFactory) Description() string {
	return "Transforms data from the execution context with a jq filter"
}

// Schema returns the JSON schema for Transform node configuration.
func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "jq filter applied to the input",
				"examples": []string{
					".items | map(.price) | add",
					"{id: .user.id, email: .user.email}",
					"[.orders[] | select(.status == \"paid\")]",
				},
			},
			"input": map[string]any{
				"type":        "string",
				"description": "Context path used as filter input; the whole context when empty",
				"examples":    []string{"http.json", "trigger.body"},
			},
			"outputVariable": map[string]any{
				"type":    "string",
				"default": "result",
			},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
		"required": []string{"expression"},
		"examples": []map[string]any{
			{
				"expression":     ".data | length",
				"input":          "http.json",
				"outputVariable": "count",
			},
		},
	}
}

// NewTransformNodeFactory creates a new factory instance.
func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}

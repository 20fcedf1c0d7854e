package merge

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

// MergeNodeFactory creates MergeNode instances.
type MergeNodeFactory struct{}

// Create creates a new MergeNode instance.
func (f *MergeNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewMergeNode(id, config)
}

// ID returns the factory ID.
func (f *MergeNodeFactory) ID() string {
	return "merge"
}

// Name returns the factory name.
func (f *MergeNodeFactory) Name() string {
	return "Merge"
}

// Description returns the factory description.
func (f *MergeNodeFactory) Description() string {
	return "Combines several context variables by appending, combining, multiplexing or choosing one of them"
}

// Schema returns the JSON schema for Merge node configuration.
func (f *MergeNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inputs": map[string]any{
				"type":        "array",
				"minItems":    1,
				"items":       map[string]any{"type": "string"},
				"description": "Context paths to merge, in order",
			},
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{ModeAppend, ModeCombine, ModeMultiplex, ModeChooseBranch},
				"default": ModeAppend,
			},
			"combineBy": map[string]any{
				"type":    "string",
				"enum":    []string{CombineByPosition, CombineByKey},
				"default": CombineByPosition,
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Field used to match objects when combining by key",
			},
			"outputVariable": map[string]any{"type": "string", "default": "merged"},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
		"required": []string{"inputs"},
	}
}

// NewMergeNodeFactory creates a new factory instance.
func NewMergeNodeFactory() protocol.NodeFactory {
	return &MergeNodeFactory{}
}

package split

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type SplitNodeFactory struct{}

func (f *SplitNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSplitNode(id, config)
}

func (f *SplitNodeFactory) ID() string {
	return "split"
}

func (f *SplitNodeFactory) Name() string {
	return "Split"
}

func (f *SplitNodeFactory) Description() string {
	return "Splits an array into fixed-size batches, groups it by a field, or splits a string on a delimiter"
}

func (f *SplitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "Context path of the value to split",
			},
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{ModeSplitInBatches, ModeSplitByField, ModeSplitByDelimiter},
				"default": ModeSplitInBatches,
			},
			"batchSize": map[string]any{
				"type":        []string{"integer", "string"},
				"description": "Items per batch; may be a template",
				"default":     defaultBatchSize,
			},
			"field": map[string]any{
				"type":        "string",
				"description": "Item field to group by (splitByField)",
			},
			"delimiter": map[string]any{
				"type":    "string",
				"default": defaultDelimiter,
			},
			"outputVariable": map[string]any{"type": "string", "default": "batches"},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
		"required": []string{"input"},
	}
}

func NewSplitNodeFactory() protocol.NodeFactory {
	return &SplitNodeFactory{}
}

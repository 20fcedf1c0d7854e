package delay

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type DelayNodeFactory struct{}

func (f *DelayNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewDelayNode(id, config)
}

func (f *DelayNodeFactory) ID() string {
	return "delay"
}

func (f *DelayNodeFactory) Name() string {
	return "Delay"
}

func (f *DelayNodeFactory) Description() string {
	return "Pauses the run durably; a resumed run only waits for the remaining time"
}

func (f *DelayNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        []string{"string", "number"},
				"description": "Go duration or number of seconds; may be a template",
				"examples":    []any{"30s", "1h30m", 5, "{{retryAfter}}"},
			},
			"outputVariable": map[string]any{"type": "string", "default": "delay"},
		},
		"required": []string{"duration"},
	}
}

func NewDelayNodeFactory() protocol.NodeFactory {
	return &DelayNodeFactory{}
}

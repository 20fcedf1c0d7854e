package log

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type LogNodeFactory struct{}

func NewLogNodeFactory() protocol.NodeFactory {
	return &LogNodeFactory{}
}

func (f *LogNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewLogNode(id, config)
}

func (f *LogNodeFactory) ID() string {
	return "log"
}

func (f *LogNodeFactory) Name() string {
	return "Log"
}

func (f *LogNodeFactory) Description() string {
	return "Writes a templated message to the run logger and passes the context through"
}

func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message template resolved against the execution context",
				"examples": []string{
					"Order {{trigger.body.id}} routed to {{route.matchedBranch}}",
					"Batch {{loop.currentIndex}} of {{loop.totalItems}}",
				},
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
			"outputVariable": map[string]any{
				"type":        "string",
				"description": "Receives {message, level, logged}",
				"default":     "log",
			},
		},
		"required": []string{"message"},
	}
}

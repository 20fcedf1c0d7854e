package loop

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type LoopNodeFactory struct{}

func (f *LoopNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewLoopNode(id, config)
}

func (f *LoopNodeFactory) ID() string {
	return "loop"
}

func (f *LoopNodeFactory) Name() string {
	return "Loop"
}

func (f *LoopNodeFactory) Description() string {
	return "Runs the nodes connected to its each port once per item (forEach) or a fixed number of times (times), then continues on done"
}

func (f *LoopNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{ModeForEach, ModeTimes},
				"default": ModeForEach,
			},
			"source": map[string]any{
				"type":        "string",
				"description": "Context path of the array to iterate, or a template rendering a JSON array",
				"examples":    []string{"items", "http.json.data", "{{json order.lines}}"},
			},
			"count": map[string]any{
				"type":        []string{"integer", "string"},
				"description": "Number of iterations in times mode; may be a template",
			},
			"maxIterations": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": MaxIterationsCap,
				"default": DefaultMaxIterations,
			},
			"outputVariable": map[string]any{
				"type":        "string",
				"description": "Variable holding the loop summary and, inside the body, the current iteration",
				"default":     "loop",
			},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
	}
}

func NewLoopNodeFactory() protocol.NodeFactory {
	return &LoopNodeFactory{}
}

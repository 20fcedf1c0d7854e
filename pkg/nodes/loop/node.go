// Package loop provides the loop node. The node expands its source into
// iteration scopes; the router runs the subgraph on the each port once per
// iteration and then continues on the done port.
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	ModeForEach = "forEach"
	ModeTimes   = "times"

	OutputPortEach = models.PortEach
	OutputPortDone = models.PortDone
	InputPortMain  = models.PortMain

	DefaultMaxIterations = 1000
	MaxIterationsCap     = 10000
)

type Config struct {
	Mode           string              `json:"mode"           validate:"omitempty,oneof=forEach times"`
	Source         string              `json:"source"         validate:"required_unless=Mode times"`
	Count          nodeconfig.Template `json:"count"          validate:"required_if=Mode times"`
	MaxIterations  int                 `json:"maxIterations"  validate:"min=0"`
	OutputVariable string              `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool                `json:"replaceContext"`
}

type LoopNode struct {
	id     string
	config Config
}

func NewLoopNode(id string, config map[string]any) (*LoopNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeForEach
	}

	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	cfg.MaxIterations = min(cfg.MaxIterations, MaxIterationsCap)
	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "loop")

	return &LoopNode{id: id, config: cfg}, nil
}

func (n *LoopNode) ID() string {
	return n.id
}

func (n *LoopNode) Execute(_ context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	items, err := n.items(execCtx)
	if err != nil {
		return execCtx, err
	}

	if len(items) > n.config.MaxIterations {
		env.Log().Warn("Loop source truncated", "node_id", n.id, "items", len(items), "max_iterations", n.config.MaxIterations)
		items = items[:n.config.MaxIterations]
	}

	iterations := make([]any, len(items))
	for i, item := range items {
		iterations[i] = map[string]any{
			"currentItem":  item,
			"currentIndex": i,
			"totalItems":   len(items),
			"isFirst":      i == 0,
			"isLast":       i == len(items)-1,
		}
	}

	// items is carried once; the executor binds it into each iteration's scope.
	out := protocol.Result(execCtx, n.config.OutputVariable, map[string]any{
		"items":      items,
		"iterations": iterations,
		"totalItems": len(items),
	}, n.config.ReplaceContext)

	return out.With(models.LoopKey, map[string]any{
		"variable":   n.config.OutputVariable,
		"items":      items,
		"iterations": iterations,
	}), nil
}

func (n *LoopNode) items(execCtx models.ExecutionContext) ([]any, error) {
	if n.config.Mode == ModeTimes {
		raw := strings.TrimSpace(template.Resolve(string(n.config.Count), execCtx))

		count, err := strconv.Atoi(raw)
		if err != nil {
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil {
				return nil, failure.Config("count", fmt.Sprintf("must be an integer, got %q", raw))
			}

			count = int(f)
		}

		count = max(0, min(count, n.config.MaxIterations))

		items := make([]any, count)
		for i := range items {
			items[i] = i
		}

		return items, nil
	}

	source := n.source(execCtx)
	if source == nil {
		return []any{}, nil
	}

	list, ok := template.AsList(source)
	if !ok {
		return nil, failure.Config("source", fmt.Sprintf("'%s' does not resolve to an array", n.config.Source))
	}

	return list, nil
}

// source accepts either a context path or a template rendering JSON.
func (n *LoopNode) source(execCtx models.ExecutionContext) any {
	if !template.HasTokens(n.config.Source) {
		value, _ := template.Lookup(execCtx.Map(), n.config.Source)

		return value
	}

	rendered := template.Resolve(n.config.Source, execCtx)

	var value any
	if err := json.Unmarshal([]byte(rendered), &value); err != nil {
		return rendered
	}

	return value
}

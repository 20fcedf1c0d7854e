// Package delay provides the delay node, a durable pause inside a run.
package delay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const maxDelay = 30 * 24 * time.Hour

type Config struct {
	// Duration is a Go duration ("90s", "1h30m") or a number of seconds; may be a template.
	Duration       nodeconfig.Template `json:"duration"       validate:"required"`
	OutputVariable string              `json:"outputVariable" validate:"omitempty,varname"`
}

type DelayNode struct {
	id     string
	config Config
}

func NewDelayNode(id string, config map[string]any) (*DelayNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if !template.HasTokens(string(cfg.Duration)) {
		if _, err := parseDuration(string(cfg.Duration)); err != nil {
			return nil, err
		}
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "delay")

	return &DelayNode{id: id, config: cfg}, nil
}

func (n *DelayNode) ID() string {
	return n.id
}

func (n *DelayNode) Execute(ctx context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	d, err := parseDuration(template.Resolve(string(n.config.Duration), execCtx))
	if err != nil {
		return execCtx, err
	}

	if err := env.Step.Sleep(ctx, env.StepName("sleep"), d); err != nil {
		return execCtx, err
	}

	return execCtx.With(n.config.OutputVariable, map[string]any{
		"duration": d.String(),
		"millis":   d.Milliseconds(),
	}), nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)

	d, err := time.ParseDuration(raw)
	if err != nil {
		seconds, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, failure.Config("duration", fmt.Sprintf("%q is neither a duration nor a number of seconds", raw))
		}

		d = time.Duration(seconds * float64(time.Second))
	}

	if d < 0 || d > maxDelay {
		return 0, failure.Config("duration", fmt.Sprintf("must be between 0 and %s", maxDelay))
	}

	return d, nil
}

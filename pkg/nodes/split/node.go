// Package split provides the split node, breaking one input into batches.
package split

import (
	"context"
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
	ModeSplitInBatches   = "splitInBatches"
	ModeSplitByField     = "splitByField"
	ModeSplitByDelimiter = "splitByDelimiter"

	defaultBatchSize = 10
	defaultDelimiter = ","
)

type Config struct {
	Input          string              `json:"input"          validate:"required"`
	Mode           string              `json:"mode"           validate:"omitempty,oneof=splitInBatches splitByField splitByDelimiter"`
	BatchSize      nodeconfig.Template `json:"batchSize"`
	Field          string              `json:"field"          validate:"required_if=Mode splitByField"`
	Delimiter      string              `json:"delimiter"`
	OutputVariable string              `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool                `json:"replaceContext"`
}

// SplitNode turns one input into an array of batches.
type SplitNode struct {
	id     string
	config Config
}

func NewSplitNode(id string, config map[string]any) (*SplitNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeSplitInBatches
	}

	if cfg.Delimiter == "" {
		cfg.Delimiter = defaultDelimiter
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "batches")

	return &SplitNode{id: id, config: cfg}, nil
}

func (n *SplitNode) ID() string {
	return n.id
}

func (n *SplitNode) Execute(_ context.Context, _ protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	input, _ := template.Lookup(execCtx.Map(), n.config.Input)

	var (
		batches []any
		err     error
	)

	switch n.config.Mode {
	case ModeSplitByField:
		batches = byField(input, n.config.Field)
	case ModeSplitByDelimiter:
		batches = byDelimiter(input, n.config.Delimiter)
	default:
		size, serr := n.batchSize(execCtx)
		if serr != nil {
			return execCtx, serr
		}

		batches, err = inBatches(input, size)
	}

	if err != nil {
		return execCtx, err
	}

	return protocol.Result(execCtx, n.config.OutputVariable, batches, n.config.ReplaceContext), nil
}

func (n *SplitNode) batchSize(execCtx models.ExecutionContext) (int, error) {
	raw := strings.TrimSpace(template.Resolve(string(n.config.BatchSize), execCtx))
	if raw == "" {
		return defaultBatchSize, nil
	}

	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		return 0, failure.Config("batchSize", fmt.Sprintf("must be a positive integer, got %q", raw))
	}

	return size, nil
}

func inBatches(input any, size int) ([]any, error) {
	list, ok := template.AsList(input)
	if !ok {
		if input == nil {
			return []any{}, nil
		}

		return nil, failure.Config("input", "splitInBatches requires an array input")
	}

	batches := make([]any, 0, (len(list)+size-1)/size)
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		batch := make([]any, end-start)
		copy(batch, list[start:end])
		batches = append(batches, batch)
	}

	return batches, nil
}

func byField(input any, field string) []any {
	list, ok := template.AsList(input)
	if !ok {
		return []any{}
	}

	var (
		order  []string
		groups = map[string][]any{}
	)

	for _, item := range list {
		value, _ := template.Lookup(item, field)
		key := template.Stringify(value)

		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}

		groups[key] = append(groups[key], item)
	}

	out := make([]any, len(order))
	for i, key := range order {
		out[i] = groups[key]
	}

	return out
}

func byDelimiter(input any, delimiter string) []any {
	s, ok := input.(string)
	if !ok {
		return []any{[]any{input}}
	}

	parts := strings.Split(s, delimiter)

	out := make([]any, len(parts))
	for i, part := range parts {
		out[i] = []any{part}
	}

	return out
}

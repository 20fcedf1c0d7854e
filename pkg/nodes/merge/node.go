// Package merge provides the merge node, combining several context variables into one.
package merge

import (
	"context"
	"maps"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	ModeAppend       = "append"
	ModeCombine      = "combine"
	ModeMultiplex    = "multiplex"
	ModeChooseBranch = "chooseBranch"

	CombineByPosition = "position"
	CombineByKey      = "key"
)

type Config struct {
	// Inputs are context paths, read in declaration order.
	Inputs         []string `json:"inputs"         validate:"required,min=1,dive,required"`
	Mode           string   `json:"mode"           validate:"omitempty,oneof=append combine multiplex chooseBranch"`
	CombineBy      string   `json:"combineBy"      validate:"omitempty,oneof=position key"`
	Key            string   `json:"key"            validate:"required_if=CombineBy key"`
	OutputVariable string   `json:"outputVariable" validate:"omitempty,varname"`
	ReplaceContext bool     `json:"replaceContext"`
}

// MergeNode joins the values of several inputs.
type MergeNode struct {
	id     string
	config Config
}

// NewMergeNode creates a new merge node.
func NewMergeNode(id string, config map[string]any) (*MergeNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Mode == "" {
		cfg.Mode = ModeAppend
	}

	if cfg.CombineBy == "" {
		cfg.CombineBy = CombineByPosition
	}

	cfg.OutputVariable = nodeconfig.OutputVariable(cfg.OutputVariable, "merged")

	return &MergeNode{id: id, config: cfg}, nil
}

// ID returns the node ID.
func (n *MergeNode) ID() string {
	return n.id
}

// Execute reads every input and stores the merged value.
func (n *MergeNode) Execute(_ context.Context, _ protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	root := execCtx.Map()

	inputs := make([]any, len(n.config.Inputs))
	for i, path := range n.config.Inputs {
		inputs[i], _ = template.Lookup(root, path)
	}

	var merged any

	switch n.config.Mode {
	case ModeCombine:
		if n.config.CombineBy == CombineByKey {
			merged = combineByKey(inputs, n.config.Key)
		} else {
			merged = combineByPosition(inputs)
		}
	case ModeMultiplex:
		merged = multiplex(inputs)
	case ModeChooseBranch:
		merged = chooseBranch(inputs)
	default:
		merged = appendAll(inputs)
	}

	return protocol.Result(execCtx, n.config.OutputVariable, merged, n.config.ReplaceContext), nil
}

// items flattens one level: arrays yield their elements, other values yield themselves.
func items(v any) []any {
	if v == nil {
		return nil
	}

	if list, ok := template.AsList(v); ok {
		return list
	}

	return []any{v}
}

func appendAll(inputs []any) []any {
	out := []any{}
	for _, in := range inputs {
		out = append(out, items(in)...)
	}

	return out
}

func combineByPosition(inputs []any) []any {
	lists := make([][]any, len(inputs))
	longest := 0

	for i, in := range inputs {
		lists[i] = items(in)
		longest = max(longest, len(lists[i]))
	}

	out := make([]any, longest)

	for pos := range longest {
		row := map[string]any{}

		for _, list := range lists {
			if pos >= len(list) {
				continue
			}

			if obj, ok := template.AsObject(list[pos]); ok {
				maps.Copy(row, obj)
			}
		}

		out[pos] = row
	}

	return out
}

func combineByKey(inputs []any, key string) []any {
	var (
		order   []string
		grouped = map[string]map[string]any{}
		unkeyed []any
	)

	for _, in := range inputs {
		for _, item := range items(in) {
			obj, ok := template.AsObject(item)
			if !ok {
				unkeyed = append(unkeyed, item)

				continue
			}

			keyValue, ok := template.Lookup(obj, key)
			if !ok || keyValue == nil {
				unkeyed = append(unkeyed, maps.Clone(obj))

				continue
			}

			k := template.Stringify(keyValue)

			existing, seen := grouped[k]
			if !seen {
				existing = map[string]any{}
				grouped[k] = existing
				order = append(order, k)
			}

			maps.Copy(existing, obj)
		}
	}

	out := make([]any, 0, len(order)+len(unkeyed))
	for _, k := range order {
		out = append(out, grouped[k])
	}

	return append(out, unkeyed...)
}

func multiplex(inputs []any) []any {
	combos := []map[string]any{{}}

	for _, in := range inputs {
		list := items(in)
		if len(list) == 0 {
			return []any{}
		}

		next := make([]map[string]any, 0, len(combos)*len(list))

		for _, combo := range combos {
			for _, item := range list {
				row := maps.Clone(combo)
				if obj, ok := template.AsObject(item); ok {
					maps.Copy(row, obj)
				}

				next = append(next, row)
			}
		}

		combos = next
	}

	out := make([]any, len(combos))
	for i, combo := range combos {
		out[i] = combo
	}

	return out
}

func chooseBranch(inputs []any) any {
	for _, in := range inputs {
		if in != nil {
			return in
		}
	}

	return nil
}

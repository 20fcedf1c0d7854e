// Package set provides the set node, which writes typed variables into the
// execution context.
package set

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dukex/nodeflow/pkg/expression"
	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	TypeString     = "string"
	TypeNumber     = "number"
	TypeBoolean    = "boolean"
	TypeJSON       = "json"
	TypeExpression = "expression"
)

type Field struct {
	Name  string `json:"name"  validate:"required,varname"`
	Value any    `json:"value"`
	Type  string `json:"type"  validate:"omitempty,oneof=string number boolean json expression"`
}

type Config struct {
	Fields      []Field `json:"fields"      validate:"required,min=1,dive"`
	KeepOnlySet bool    `json:"keepOnlySet"`
}

type SetNode struct {
	id     string
	config Config
}

func NewSetNode(id string, config map[string]any) (*SetNode, error) {
	var cfg Config
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	return &SetNode{id: id, config: cfg}, nil
}

func (n *SetNode) ID() string {
	return n.id
}

// Execute evaluates fields in order against the incoming context.
func (n *SetNode) Execute(_ context.Context, _ protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	out := execCtx
	if n.config.KeepOnlySet {
		out = models.ExecutionContext{}
	}

	for _, field := range n.config.Fields {
		value, err := field.evaluate(execCtx)
		if err != nil {
			return execCtx, err
		}

		out = out.With(field.Name, value)
	}

	return out, nil
}

func (f Field) evaluate(execCtx models.ExecutionContext) (any, error) {
	switch f.Type {
	case TypeNumber:
		return toNumber(f.resolve(execCtx)), nil
	case TypeBoolean:
		return toBoolean(f.resolve(execCtx)), nil
	case TypeJSON:
		return toJSON(f.resolve(execCtx)), nil
	case TypeExpression:
		formula, _ := f.Value.(string)

		result, err := expression.Evaluate(template.Resolve(formula, execCtx), execCtx.Map())
		if err != nil {
			return nil, failure.Config("fields."+f.Name, err.Error())
		}

		return result, nil
	default:
		return template.Stringify(f.resolve(execCtx)), nil
	}
}

// resolve renders template tokens in string values and leaves other values
// as configured.
func (f Field) resolve(execCtx models.ExecutionContext) any {
	return template.ResolveValue(f.Value, execCtx)
}

func toNumber(v any) float64 {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(n) {
			return 0
		}

		return n
	}

	n, ok := expression.ToFloat(v)
	if !ok || math.IsNaN(n) {
		return 0
	}

	return n
}

func toBoolean(v any) bool {
	s := strings.TrimSpace(template.Stringify(v))

	return s == "true" || s == "1"
}

func toJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}

	return parsed
}

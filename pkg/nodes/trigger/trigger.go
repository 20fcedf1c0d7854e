// Package trigger provides the trigger nodes. A run starts with the raw
// trigger payload under models.TriggerKey; the trigger node shapes it into its
// output variable and removes the carrier.
package trigger

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/template"
)

const (
	OutputPortSuccess = models.PortSuccess

	defaultOutputVariable = "trigger"
)

// shapeFunc maps a raw trigger payload to the node output.
type shapeFunc func(payload map[string]any) map[string]any

// TriggerNode is the node shared by every trigger type.
type TriggerNode struct {
	id             string
	nodeType       string
	outputVariable string
	shape          shapeFunc
}

func newTriggerNode(id, nodeType, outputVariable string, shape shapeFunc) *TriggerNode {
	if outputVariable == "" {
		outputVariable = defaultOutputVariable
	}

	return &TriggerNode{id: id, nodeType: nodeType, outputVariable: outputVariable, shape: shape}
}

func (n *TriggerNode) ID() string {
	return n.id
}

// Type returns the node type.
func (n *TriggerNode) Type() string {
	return n.nodeType
}

func (n *TriggerNode) Execute(_ context.Context, env protocol.Env, execCtx models.ExecutionContext) (models.ExecutionContext, error) {
	payload, _ := template.AsObject(execCtx.Value(models.TriggerKey))
	if payload == nil {
		env.Log().Debug("Trigger started without payload", "node_id", n.id, "type", n.nodeType)

		payload = map[string]any{}
	}

	return execCtx.Without(models.TriggerKey).With(n.outputVariable, n.shape(payload)), nil
}

// pick copies the named keys of payload, leaving absent keys out.
func pick(payload map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))

	for _, k := range keys {
		if v, ok := payload[k]; ok {
			out[k] = v
		}
	}

	return out
}

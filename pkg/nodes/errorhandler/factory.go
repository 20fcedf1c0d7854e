package errorhandler

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type ErrorHandlerNodeFactory struct{}

func (f *ErrorHandlerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewErrorHandlerNode(id, config)
}

func (f *ErrorHandlerNodeFactory) ID() string {
	return "errorhandler"
}

func (f *ErrorHandlerNodeFactory) Name() string {
	return "Error Handler"
}

func (f *ErrorHandlerNodeFactory) Description() string {
	return "Receives the structured error of a failed node through its error port and exposes it as a variable"
}

func (f *ErrorHandlerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outputVariable": map[string]any{
				"type":        "string",
				"description": "Variable receiving {message, guidance, fixSteps, errorCode, retriable, nodeId}",
				"default":     "failure",
			},
		},
	}
}

func NewErrorHandlerNodeFactory() protocol.NodeFactory {
	return &ErrorHandlerNodeFactory{}
}

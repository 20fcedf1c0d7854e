// Package httprequest provides the HTTP request node.
package httprequest

import (
	"context"

	"github.com/dukex/nodeflow/pkg/protocol"
)

type HTTPRequestNodeFactory struct{}

func NewHTTPRequestNodeFactory() protocol.NodeFactory {
	return &HTTPRequestNodeFactory{}
}

func (f *HTTPRequestNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewHTTPRequestNode(id, config)
}

func (f *HTTPRequestNodeFactory) ID() string {
	return "httprequest"
}

func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestNodeFactory) Description() string {
	return "Calls an HTTP endpoint once per run; network errors and 5xx/429 answers are retried"
}

// Schema describes the configuration. The result lands in outputVariable as
// {status_code, headers, body, json?}.
func (f *HTTPRequestNodeFactory) Schema() map[string]any {
	templated := func(description string, examples ...string) map[string]any {
		return map[string]any{
			"type":        "string",
			"description": description,
			"examples":    examples,
		}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": templated("Endpoint to call; {{path}} tokens are resolved first",
				"https://hooks.example.com/orders",
				"{{settings.baseUrl}}/customers/{{trigger.body.customerId}}",
			),
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"description":          "Header values are templates",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body": map[string]any{
				"type":        []string{"string", "object", "array"},
				"description": "A string is sent as resolved text; objects and arrays are sent as JSON after resolving their string leaves",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Per-attempt timeout in seconds",
				"default":     defaultTimeout,
				"minimum":     1,
				"maximum":     300,
			},
			"outputVariable": map[string]any{"type": "string", "default": "http"},
			"replaceContext": map[string]any{"type": "boolean", "default": false},
		},
		"required": []string{"url"},
		"examples": []map[string]any{
			{
				"url":     "{{settings.baseUrl}}/orders/{{trigger.body.id}}/ack",
				"method":  "POST",
				"headers": map[string]string{"Authorization": "Bearer {{settings.token}}"},
				"body":    map[string]any{"acknowledgedBy": "nodeflow", "items": "{{json trigger.body.items}}"},
			},
		},
	}
}

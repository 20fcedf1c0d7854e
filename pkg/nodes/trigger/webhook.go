package trigger

import (
	"strings"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
)

type WebhookTriggerConfig struct {
	WebhookPath    string `json:"webhookPath"    validate:"required,startswith=/"`
	Method         string `json:"method"         validate:"omitempty,oneof=GET POST PUT DELETE PATCH get post put delete patch"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

// NewWebhookTriggerNode creates a trigger node for inbound HTTP requests. The
// payload carries headers, body, method, url and query.
func NewWebhookTriggerNode(id string, config map[string]any) (*TriggerNode, error) {
	var cfg WebhookTriggerConfig
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = "POST"
	}

	return newTriggerNode(id, models.NodeTypeTriggerWebhook, cfg.OutputVariable, func(payload map[string]any) map[string]any {
		out := pick(payload, "headers", "body", "url", "query")
		out["method"] = method

		if m, ok := payload["method"].(string); ok && m != "" {
			out["method"] = m
		}

		return out
	}), nil
}

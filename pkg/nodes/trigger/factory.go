package trigger

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

var outputVariableSchema = map[string]any{
	"type":        "string",
	"description": "Variable receiving the trigger data",
	"default":     defaultOutputVariable,
}

// ManualTriggerNodeFactory creates manual trigger nodes.
type ManualTriggerNodeFactory struct{}

func NewManualTriggerNodeFactory() protocol.NodeFactory {
	return &ManualTriggerNodeFactory{}
}

func (f *ManualTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewManualTriggerNode(id, config)
}

func (f *ManualTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerManual
}

func (f *ManualTriggerNodeFactory) Name() string {
	return "Manual Trigger"
}

func (f *ManualTriggerNodeFactory) Description() string {
	return "Starts a workflow on demand with the input supplied by the caller"
}

func (f *ManualTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outputVariable": outputVariableSchema,
		},
	}
}

// WebhookTriggerNodeFactory creates webhook trigger nodes.
type WebhookTriggerNodeFactory struct{}

func NewWebhookTriggerNodeFactory() protocol.NodeFactory {
	return &WebhookTriggerNodeFactory{}
}

func (f *WebhookTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewWebhookTriggerNode(id, config)
}

func (f *WebhookTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerWebhook
}

func (f *WebhookTriggerNodeFactory) Name() string {
	return "Webhook Trigger"
}

func (f *WebhookTriggerNodeFactory) Description() string {
	return "Receives webhook events from external sources and starts workflow execution"
}

func (f *WebhookTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhookPath": map[string]any{
				"type":        "string",
				"description": "The webhook endpoint path that will receive HTTP requests",
				"examples":    []string{"/webhook/orders", "/webhook/github-push"},
			},
			"method": map[string]any{
				"type":    "string",
				"default": "POST",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			},
			"outputVariable": outputVariableSchema,
		},
		"required": []string{"webhookPath"},
	}
}

// SchedulerTriggerNodeFactory creates scheduler trigger nodes.
type SchedulerTriggerNodeFactory struct{}

func NewSchedulerTriggerNodeFactory() protocol.NodeFactory {
	return &SchedulerTriggerNodeFactory{}
}

func (f *SchedulerTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSchedulerTriggerNode(id, config)
}

func (f *SchedulerTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerScheduler
}

func (f *SchedulerTriggerNodeFactory) Name() string {
	return "Scheduler Trigger"
}

func (f *SchedulerTriggerNodeFactory) Description() string {
	return "Starts a workflow on a recurring schedule (interval, daily, weekly, monthly or cron)"
}

func (f *SchedulerTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone reported with each fire",
				"default":     "UTC",
				"examples":    []string{"UTC", "America/Sao_Paulo", "Europe/Berlin"},
			},
			"outputVariable": outputVariableSchema,
		},
	}
}

// KafkaTriggerNodeFactory creates Kafka trigger nodes.
type KafkaTriggerNodeFactory struct{}

func NewKafkaTriggerNodeFactory() protocol.NodeFactory {
	return &KafkaTriggerNodeFactory{}
}

func (f *KafkaTriggerNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewKafkaTriggerNode(id, config)
}

func (f *KafkaTriggerNodeFactory) ID() string {
	return models.NodeTypeTriggerKafka
}

func (f *KafkaTriggerNodeFactory) Name() string {
	return "Kafka Trigger"
}

func (f *KafkaTriggerNodeFactory) Description() string {
	return "Starts a workflow for each message consumed from a Kafka topic"
}

func (f *KafkaTriggerNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":     "string",
				"examples": []string{"orders", "user-events"},
			},
			"consumerGroup": map[string]any{
				"type":        "string",
				"description": "Consumer group; defaults to one group per workflow",
			},
			"outputVariable": outputVariableSchema,
		},
		"required": []string{"topic"},
	}
}

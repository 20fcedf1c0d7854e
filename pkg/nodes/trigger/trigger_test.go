package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

func TestManualTrigger_PassesInputThrough(t *testing.T) {
	node, err := NewManualTriggerNode("start", nil)
	require.NoError(t, err)

	execCtx := models.ExecutionContext{}.
		With("env", "prod").
		With(models.TriggerKey, map[string]any{"orderId": "o-1"})

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"orderId": "o-1"}, out.Value("trigger"))
	assert.False(t, out.Has(models.TriggerKey))
	assert.Equal(t, "prod", out.Value("env"))
}

func TestWebhookTrigger_Shape(t *testing.T) {
	node, err := NewWebhookTriggerNode("hook", map[string]any{"webhookPath": "/orders", "outputVariable": "request"})
	require.NoError(t, err)

	execCtx := models.ExecutionContext{}.With(models.TriggerKey, map[string]any{
		"body":    map[string]any{"id": 7},
		"headers": map[string]any{"X-Id": "1"},
		"extra":   "dropped",
	})

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"body":    map[string]any{"id": 7},
		"headers": map[string]any{"X-Id": "1"},
		"method":  "POST",
	}, out.Value("request"))
}

func TestSchedulerTrigger_Shape(t *testing.T) {
	node, err := NewSchedulerTriggerNode("cron", map[string]any{"timezone": "Europe/Berlin"})
	require.NoError(t, err)

	execCtx := models.ExecutionContext{}.With(models.TriggerKey, map[string]any{"scheduleId": "s-1"})

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"scheduleId": "s-1", "timezone": "Europe/Berlin"}, out.Value("trigger"))
}

func TestKafkaTrigger_DecodesJSONValue(t *testing.T) {
	node, err := NewKafkaTriggerNode("k", map[string]any{"topic": "orders"})
	require.NoError(t, err)

	execCtx := models.ExecutionContext{}.With(models.TriggerKey, map[string]any{"key": "o-1", "value": `{"total":10}`})

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"key":   "o-1",
		"value": map[string]any{"total": float64(10)},
		"topic": "orders",
	}, out.Value("trigger"))
}

func TestTrigger_MissingPayload(t *testing.T) {
	node, err := NewManualTriggerNode("start", nil)
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), protocol.Env{}, models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{}, out.Value("trigger"))
}

func TestTrigger_InvalidConfig(t *testing.T) {
	_, err := NewWebhookTriggerNode("hook", map[string]any{})
	assert.Error(t, err)

	_, err = NewKafkaTriggerNode("k", map[string]any{})
	assert.Error(t, err)

	_, err = NewSchedulerTriggerNode("s", map[string]any{"timezone": "Mars/Olympus"})
	assert.Error(t, err)
}

func TestFactories(t *testing.T) {
	factories := []protocol.NodeFactory{
		NewManualTriggerNodeFactory(),
		NewWebhookTriggerNodeFactory(),
		NewSchedulerTriggerNodeFactory(),
		NewKafkaTriggerNodeFactory(),
	}

	ids := make([]string, len(factories))
	for i, f := range factories {
		ids[i] = f.ID()
		assert.NotEmpty(t, f.Schema())
	}

	assert.Equal(t, []string{
		models.NodeTypeTriggerManual,
		models.NodeTypeTriggerWebhook,
		models.NodeTypeTriggerScheduler,
		models.NodeTypeTriggerKafka,
	}, ids)
}

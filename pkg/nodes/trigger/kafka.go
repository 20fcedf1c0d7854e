package trigger

import (
	"encoding/json"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
)

type KafkaTriggerConfig struct {
	Topic          string `json:"topic"          validate:"required"`
	ConsumerGroup  string `json:"consumerGroup"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

// NewKafkaTriggerNode creates a trigger node for Kafka messages. String
// message values holding JSON are decoded into value.
func NewKafkaTriggerNode(id string, config map[string]any) (*TriggerNode, error) {
	var cfg KafkaTriggerConfig
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	return newTriggerNode(id, models.NodeTypeTriggerKafka, cfg.OutputVariable, func(payload map[string]any) map[string]any {
		out := pick(payload, "key", "value", "headers", "partition", "offset")
		out["topic"] = cfg.Topic

		if raw, ok := out["value"].(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
				out["value"] = decoded
			}
		}

		return out
	}), nil
}

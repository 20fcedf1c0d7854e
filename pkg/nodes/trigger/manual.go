package trigger

import (
	"maps"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
)

type ManualTriggerConfig struct {
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

// NewManualTriggerNode creates a trigger node that passes the run input through.
func NewManualTriggerNode(id string, config map[string]any) (*TriggerNode, error) {
	var cfg ManualTriggerConfig
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	return newTriggerNode(id, models.NodeTypeTriggerManual, cfg.OutputVariable, func(payload map[string]any) map[string]any {
		return maps.Clone(payload)
	}), nil
}

package trigger

import (
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
)

type SchedulerTriggerConfig struct {
	Timezone       string `json:"timezone"       validate:"omitempty,timezone"`
	OutputVariable string `json:"outputVariable" validate:"omitempty,varname"`
}

// NewSchedulerTriggerNode creates a trigger node fired by the schedule
// service. The schedule itself is stored per workflow node, not in the node
// configuration.
func NewSchedulerTriggerNode(id string, config map[string]any) (*TriggerNode, error) {
	var cfg SchedulerTriggerConfig
	if err := nodeconfig.Decode(config, &cfg); err != nil {
		return nil, err
	}

	timezone := cfg.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	return newTriggerNode(id, models.NodeTypeTriggerScheduler, cfg.OutputVariable, func(payload map[string]any) map[string]any {
		out := pick(payload, "scheduleId", "scheduledAt", "firedAt")
		out["timezone"] = timezone

		return out
	}), nil
}

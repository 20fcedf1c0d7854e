package registry

import (
	"github.com/dukex/nodeflow/pkg/nodes/conditional"
	"github.com/dukex/nodeflow/pkg/nodes/delay"
	"github.com/dukex/nodeflow/pkg/nodes/errorhandler"
	"github.com/dukex/nodeflow/pkg/nodes/httprequest"
	"github.com/dukex/nodeflow/pkg/nodes/log"
	"github.com/dukex/nodeflow/pkg/nodes/loop"
	"github.com/dukex/nodeflow/pkg/nodes/merge"
	"github.com/dukex/nodeflow/pkg/nodes/set"
	"github.com/dukex/nodeflow/pkg/nodes/split"
	switchnode "github.com/dukex/nodeflow/pkg/nodes/switch"
	"github.com/dukex/nodeflow/pkg/nodes/transform"
	"github.com/dukex/nodeflow/pkg/nodes/trigger"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	// Control flow
	r.RegisterNode(conditional.NewConditionalNodeFactory())
	r.RegisterNode(conditional.NewFilterNodeFactory())
	r.RegisterNode(switchnode.NewSwitchNodeFactory())
	r.RegisterNode(merge.NewMergeNodeFactory())
	r.RegisterNode(split.NewSplitNodeFactory())
	r.RegisterNode(loop.NewLoopNodeFactory())
	r.RegisterNode(set.NewSetNodeFactory())

	// Actions
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory())
	r.RegisterNode(delay.NewDelayNodeFactory())
	r.RegisterNode(errorhandler.NewErrorHandlerNodeFactory())

	// Triggers
	r.RegisterNode(trigger.NewManualTriggerNodeFactory())
	r.RegisterNode(trigger.NewWebhookTriggerNodeFactory())
	r.RegisterNode(trigger.NewSchedulerTriggerNodeFactory())
	r.RegisterNode(trigger.NewKafkaTriggerNodeFactory())
}

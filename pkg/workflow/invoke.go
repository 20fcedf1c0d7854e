package workflow

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
	"github.com/dukex/nodeflow/pkg/registry"
)

// Invoke runs one node of type nodeType through the registry executor, which
// publishes its loading and terminal status updates.
func Invoke(ctx context.Context, reg *registry.Registry, nodeType string, inv protocol.Invocation) (models.ExecutionContext, error) {
	execute, err := reg.Executor(nodeType)
	if err != nil {
		return inv.Context, err
	}

	return execute(ctx, inv)
}

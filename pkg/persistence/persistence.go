// Package persistence provides the storage abstraction for workflow definitions.
package persistence

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
)

type Persistence interface {
	// Workflows returns every stored workflow, newest first.
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	// WorkflowByID fails with ErrWorkflowNotFound when no workflow has id.
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

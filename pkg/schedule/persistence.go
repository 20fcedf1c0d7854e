package schedule

import (
	"context"

	"github.com/dukex/nodeflow/pkg/models"
)

// Persistence stores schedules. Lookups that miss return an error matching
// persistence.ErrScheduleNotFound.
type Persistence interface {
	// Upsert stores s keyed by (WorkflowID, NodeID).
	Upsert(ctx context.Context, s *models.Schedule) error
	ByNode(ctx context.Context, workflowID, nodeID string) (*models.Schedule, error)
	ByID(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Enabled(ctx context.Context) ([]*models.Schedule, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

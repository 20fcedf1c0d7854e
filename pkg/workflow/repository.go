package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/registry"
)

// Repository manages stored workflows, validating them on write.
type Repository struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewRepository(persistence persistence.Persistence, reg *registry.Registry) *Repository {
	return &Repository{
		persistence: persistence,
		registry:    reg,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := r.persistence.Workflows(ctx)
	if err != nil {
		return make([]*models.Workflow, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.WorkflowByID(ctx, id)
}

// FetchPublished returns the workflows runs may start from.
func (r *Repository) FetchPublished(ctx context.Context) ([]*models.Workflow, error) {
	all, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	published := make([]*models.Workflow, 0, len(all))

	for _, wf := range all {
		if wf.Status == models.WorkflowStatusPublished {
			published = append(published, wf)
		}
	}

	return published, nil
}

func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	if err := Validate(workflow, r.registry); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := r.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	if err := Validate(workflow, r.registry); err != nil {
		return nil, err
	}

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.persistence.DeleteWorkflow(ctx, id)
}

// Publish makes a workflow executable.
func (r *Repository) Publish(ctx context.Context, id string) (*models.Workflow, error) {
	return r.setStatus(ctx, id, models.WorkflowStatusPublished)
}

// Unpublish stops new runs of a workflow; stored schedules keep firing but the
// runs they request are rejected.
func (r *Repository) Unpublish(ctx context.Context, id string) (*models.Workflow, error) {
	return r.setStatus(ctx, id, models.WorkflowStatusUnpublished)
}

func (r *Repository) setStatus(ctx context.Context, id string, status models.WorkflowStatus) (*models.Workflow, error) {
	wf, err := r.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wf.Status = status

	if err := Validate(wf, r.registry); err != nil {
		return nil, err
	}

	wf.UpdatedAt = time.Now().UTC()

	if err := r.persistence.SaveWorkflow(ctx, wf); err != nil {
		return nil, err
	}

	return wf, nil
}

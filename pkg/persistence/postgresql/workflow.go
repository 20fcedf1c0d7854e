package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
)

// WorkflowRepository stores each workflow as one JSONB document; the
// indexed columns mirror the fields used for filtering.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document
		FROM workflows
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		var document []byte

		err := rows.Scan(&document)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflow, err := decode(document)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM workflows WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query workflow %s: %w", id, err)
	}

	return decode(document)
}

// SaveWorkflow upserts the workflow, assigning a UUIDv7 id when it has none.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	document, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, status, owner, document, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			owner = EXCLUDED.owner,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`, workflow.ID, workflow.Name, string(workflow.Status), workflow.Owner, document, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func decode(document []byte) (*models.Workflow, error) {
	var workflow models.Workflow

	err := json.Unmarshal(document, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow document: %w", err)
	}

	return &workflow, nil
}

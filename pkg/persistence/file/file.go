// Package file provides file-based persistence for workflows: one JSON
// document per workflow under <root>/workflows.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory. A "file://" prefix is accepted.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

var _ persistence.Persistence = (*Persistence)(nil)

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); err != nil {
		return fmt.Errorf("persistence root %s is not accessible: %w", fp.root, err)
	}

	return nil
}

func (fp *Persistence) dir() string {
	return filepath.Join(fp.root, "workflows")
}

// path rejects ids that would escape the workflows directory.
func (fp *Persistence) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid workflow id %q", id)
	}

	return filepath.Join(fp.dir(), id+".json"), nil
}

func (fp *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	jsonFiles, err := fs.Glob(os.DirFS(fp.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := fp.WorkflowByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	filePath, err := fp.path(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	filePath, err := fp.path(workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	err = os.MkdirAll(fp.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	// Write then rename so readers never observe a partial document.
	tmp := filePath + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return os.Rename(tmp, filePath)
}

func (fp *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	filePath, err := fp.path(id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	err = os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

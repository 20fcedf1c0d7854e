package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/nodes/nodeconfig"
	"github.com/dukex/nodeflow/pkg/registry"
)

// Validate checks the workflow structure, its graph and the configuration of
// every node against the schema of its registered type. All problems found
// are joined into one error.
func Validate(wf *models.Workflow, reg *registry.Registry) error {
	if wf == nil {
		return fmt.Errorf("%w: workflow is nil", ErrInvalidWorkflow)
	}

	var errs []error

	if err := nodeconfig.Validator().Struct(wf); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidWorkflow, err))
	}

	if _, err := newGraph(wf); err != nil {
		errs = append(errs, err)
	}

	for _, node := range wf.Nodes {
		if node == nil {
			continue
		}

		if err := reg.ValidateConfig(node.Type, node.Config); err != nil {
			errs = append(errs, fmt.Errorf("%w: node %s: %w", ErrInvalidWorkflow, node.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Executable reports whether runs may start from wf.
func Executable(wf *models.Workflow) error {
	if wf.Status != models.WorkflowStatusPublished {
		return fmt.Errorf("%w: workflow %s is %s", ErrNotExecutable, wf.ID, wf.Status)
	}

	return nil
}

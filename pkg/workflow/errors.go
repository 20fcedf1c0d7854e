package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWorkflow = errors.New("invalid workflow")
	ErrTriggerNotFound = errors.New("trigger node not found")
	ErrNotExecutable   = errors.New("workflow is not executable")
)

// RunError terminates a run: the node failed and has no error port connection.
type RunError struct {
	RunID      string
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s of workflow %s failed at node %s: %v", e.RunID, e.WorkflowID, e.NodeID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrScheduleNotFound indicates a schedule was not found by the given identifier.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// ScheduleError wraps schedule-related errors with additional context.
type ScheduleError struct {
	Op         string
	ScheduleID string
	Err        error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("%s operation failed for schedule %s: %v", e.Op, e.ScheduleID, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}

func (e *ScheduleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewScheduleError(op, scheduleID string, err error) *ScheduleError {
	return &ScheduleError{
		Op:         op,
		ScheduleID: scheduleID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsScheduleNotFound checks if an error indicates a schedule was not found.
func IsScheduleNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}

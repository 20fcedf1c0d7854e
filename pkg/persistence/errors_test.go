package persistence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/nodeflow/pkg/persistence"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		scheduleErr := persistence.NewScheduleError("Delete", "schedule-456", persistence.ErrScheduleNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsScheduleNotFound(scheduleErr))
		assert.False(t, persistence.IsWorkflowNotFound(scheduleErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(scheduleErr, persistence.ErrScheduleNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("UpdateWorkflow", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "UpdateWorkflow")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("schedule error contains context", func(t *testing.T) {
		err := persistence.NewScheduleError("SetEnabled", "schedule-456", persistence.ErrScheduleNotFound)

		assert.Contains(t, err.Error(), "SetEnabled")
		assert.Contains(t, err.Error(), "schedule-456")
		assert.Contains(t, err.Error(), "schedule not found")
	})
}

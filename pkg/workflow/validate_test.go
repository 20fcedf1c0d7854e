package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/registry"
)

func TestValidate(t *testing.T) {
	reg := testRegistry()

	valid := newWorkflow(
		[]*models.WorkflowNode{
			node("start", models.NodeTypeTriggerManual, nil),
			node("greet", "set", setField("greeting", "hi")),
		},
		conn("start:success", "greet:main"),
	)

	assert.NoError(t, Validate(valid, reg))

	t.Run("unknown node type", func(t *testing.T) {
		wf := newWorkflow([]*models.WorkflowNode{node("x", "does-not-exist", nil)})

		assert.ErrorIs(t, Validate(wf, reg), registry.ErrNodeTypeNotRegistered)
	})

	t.Run("invalid node config", func(t *testing.T) {
		wf := newWorkflow([]*models.WorkflowNode{node("greet", "set", map[string]any{"fields": "nope"})})

		err := Validate(wf, reg)
		assert.ErrorContains(t, err, "node greet")
	})

	t.Run("dangling connection", func(t *testing.T) {
		wf := newWorkflow(
			[]*models.WorkflowNode{node("start", models.NodeTypeTriggerManual, nil)},
			conn("start:success", "ghost:main"),
		)

		assert.ErrorIs(t, Validate(wf, reg), ErrInvalidWorkflow)
	})

	t.Run("missing name", func(t *testing.T) {
		wf := newWorkflow([]*models.WorkflowNode{node("start", models.NodeTypeTriggerManual, nil)})
		wf.Name = ""

		assert.ErrorIs(t, Validate(wf, reg), ErrInvalidWorkflow)
	})

	t.Run("nil workflow", func(t *testing.T) {
		assert.ErrorIs(t, Validate(nil, reg), ErrInvalidWorkflow)
	})
}

func TestExecutable(t *testing.T) {
	wf := newWorkflow(nil)
	assert.NoError(t, Executable(wf))

	wf.Status = models.WorkflowStatusDraft
	assert.ErrorIs(t, Executable(wf), ErrNotExecutable)
}

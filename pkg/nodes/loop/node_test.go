package loop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

func run(t *testing.T, config map[string]any, execCtx models.ExecutionContext) models.ExecutionContext {
	t.Helper()

	node, err := NewLoopNode("loop-1", config)
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	return out
}

func TestLoopNode_ForEach(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("items", []any{"a", "b", "c"})

	out := run(t, map[string]any{"source": "items"}, execCtx)

	summary := out.Value("loop").(map[string]any)
	assert.Equal(t, 3, summary["totalItems"])

	iterations := summary["iterations"].([]any)
	require.Len(t, iterations, 3)

	first := iterations[0].(map[string]any)
	assert.Equal(t, "a", first["currentItem"])
	assert.Equal(t, 0, first["currentIndex"])
	assert.Equal(t, true, first["isFirst"])
	assert.Equal(t, false, first["isLast"])

	last := iterations[2].(map[string]any)
	assert.Equal(t, true, last["isLast"])

	scope := out.Value(models.LoopKey).(map[string]any)
	assert.Equal(t, "loop", scope["variable"])
	assert.Equal(t, []any{"a", "b", "c"}, scope["items"])
	assert.Len(t, scope["iterations"], 3)
}

func TestLoopNode_ItemsStoredOnce(t *testing.T) {
	items := make([]any, 100)
	for i := range items {
		items[i] = i
	}

	out := run(t, map[string]any{"source": "items"}, models.ExecutionContext{}.With("items", items))

	summary := out.Value("loop").(map[string]any)
	assert.Equal(t, items, summary["items"])

	for _, iteration := range summary["iterations"].([]any) {
		assert.NotContains(t, iteration.(map[string]any), "items")
	}

	for _, iteration := range out.Value(models.LoopKey).(map[string]any)["iterations"].([]any) {
		assert.NotContains(t, iteration.(map[string]any), "items")
	}
}

func TestLoopNode_Times(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("n", float64(4))

	out := run(t, map[string]any{"mode": "times", "count": "{{n}}", "outputVariable": "rep"}, execCtx)

	summary := out.Value("rep").(map[string]any)
	assert.Equal(t, 4, summary["totalItems"])

	iterations := summary["iterations"].([]any)
	assert.Equal(t, 3, iterations[3].(map[string]any)["currentItem"])
}

func TestLoopNode_MaxIterations(t *testing.T) {
	items := make([]any, 20)
	for i := range items {
		items[i] = i
	}

	out := run(t, map[string]any{"source": "items", "maxIterations": 5}, models.ExecutionContext{}.With("items", items))

	assert.Equal(t, 5, out.Value("loop").(map[string]any)["totalItems"])
}

func TestNewLoopNode_HardCap(t *testing.T) {
	node, err := NewLoopNode("loop-1", map[string]any{"source": "items", "maxIterations": 50000})
	require.NoError(t, err)

	assert.Equal(t, MaxIterationsCap, node.config.MaxIterations)

	node, err = NewLoopNode("loop-1", map[string]any{"source": "items"})
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, node.config.MaxIterations)
}

func TestLoopNode_TemplateSource(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("order", map[string]any{"lines": []any{1.0, 2.0}})

	out := run(t, map[string]any{"source": "{{json order.lines}}"}, execCtx)

	assert.Equal(t, 2, out.Value("loop").(map[string]any)["totalItems"])
}

func TestLoopNode_SourceNotArray(t *testing.T) {
	node, err := NewLoopNode("loop-1", map[string]any{"source": "name"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.Env{}, models.ExecutionContext{}.With("name", "x"))

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeInvalidConfig, fe.ErrorCode)
}

func TestLoopNode_MissingSourceIsEmpty(t *testing.T) {
	out := run(t, map[string]any{"source": "missing"}, models.ExecutionContext{})

	assert.Equal(t, 0, out.Value("loop").(map[string]any)["totalItems"])
}

func TestNewLoopNode_InvalidConfig(t *testing.T) {
	_, err := NewLoopNode("loop-1", map[string]any{})
	assert.Error(t, err)

	_, err = NewLoopNode("loop-1", map[string]any{"mode": "times"})
	assert.Error(t, err)
}

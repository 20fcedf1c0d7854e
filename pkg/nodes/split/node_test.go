package split

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/failure"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

func split(t *testing.T, config map[string]any, execCtx models.ExecutionContext) []any {
	t.Helper()

	node, err := NewSplitNode("split-1", config)
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	batches, ok := out.Value("batches").([]any)
	require.True(t, ok)

	return batches
}

func TestSplitNode_InBatches(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("items", []any{1, 2, 3, 4, 5, 6, 7, 8})

	batches := split(t, map[string]any{"input": "items", "batchSize": 3}, execCtx)

	lengths := make([]int, len(batches))
	for i, b := range batches {
		lengths[i] = len(b.([]any))
	}

	assert.Equal(t, []int{3, 3, 2}, lengths)
	assert.Equal(t, []any{7, 8}, batches[2])
}

func TestSplitNode_TemplatedBatchSize(t *testing.T) {
	execCtx := models.ExecutionContext{}.
		With("items", []any{"a", "b", "c"}).
		With("size", float64(2))

	batches := split(t, map[string]any{"input": "items", "batchSize": "{{size}}"}, execCtx)

	assert.Equal(t, []any{[]any{"a", "b"}, []any{"c"}}, batches)
}

func TestSplitNode_InvalidBatchSize(t *testing.T) {
	node, err := NewSplitNode("split-1", map[string]any{"input": "items", "batchSize": "zero"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.Env{}, models.ExecutionContext{}.With("items", []any{1}))

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, failure.CodeInvalidConfig, fe.ErrorCode)
}

func TestSplitNode_ByField(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("orders", []any{
		map[string]any{"id": 1, "status": "paid"},
		map[string]any{"id": 2, "status": "open"},
		map[string]any{"id": 3, "status": "paid"},
	})

	batches := split(t, map[string]any{"input": "orders", "mode": "splitByField", "field": "status"}, execCtx)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Equal(t, []any{map[string]any{"id": 2, "status": "open"}}, batches[1])
}

func TestSplitNode_ByDelimiter(t *testing.T) {
	execCtx := models.ExecutionContext{}.With("csv", "a;b;c").With("n", float64(4))

	batches := split(t, map[string]any{"input": "csv", "mode": "splitByDelimiter", "delimiter": ";"}, execCtx)
	assert.Equal(t, []any{[]any{"a"}, []any{"b"}, []any{"c"}}, batches)

	batches = split(t, map[string]any{"input": "n", "mode": "splitByDelimiter"}, execCtx)
	assert.Equal(t, []any{[]any{float64(4)}}, batches)
}

func TestNewSplitNode_InvalidConfig(t *testing.T) {
	_, err := NewSplitNode("split-1", map[string]any{})
	assert.Error(t, err)

	_, err = NewSplitNode("split-1", map[string]any{"input": "x", "mode": "splitByField"})
	assert.Error(t, err)
}

package errorhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/protocol"
)

func TestErrorHandlerNode_ConsumesCarrier(t *testing.T) {
	node, err := NewErrorHandlerNode("handler", nil)
	require.NoError(t, err)

	carried := map[string]any{"message": "boom", "errorCode": "UPSTREAM_ERROR", "nodeId": "fetch"}
	execCtx := models.ExecutionContext{}.With("order", 1).With(models.ErrorKey, carried)

	out, err := node.Execute(context.Background(), protocol.Env{}, execCtx)
	require.NoError(t, err)

	assert.False(t, out.Has(models.ErrorKey))
	assert.Equal(t, carried, out.Value("failure"))
	assert.Equal(t, []string{"order", "failure"}, out.Keys())
}

func TestErrorHandlerNode_NoCarrier(t *testing.T) {
	node, err := NewErrorHandlerNode("handler", map[string]any{"outputVariable": "err"})
	require.NoError(t, err)

	out, err := node.Execute(context.Background(), protocol.Env{}, models.ExecutionContext{})
	require.NoError(t, err)

	assert.True(t, out.Has("err"))
	assert.Nil(t, out.Value("err"))
}

package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContext_WithDoesNotMutateReceiver(t *testing.T) {
	base := ExecutionContext{}.With("a", 1)
	next := base.With("b", 2)

	assert.Equal(t, 1, base.Len())
	assert.False(t, base.Has("b"))
	assert.Equal(t, []string{"a", "b"}, next.Keys())
}

func TestExecutionContext_WithKeepsPositionOnOverwrite(t *testing.T) {
	c := ExecutionContext{}.With("a", 1).With("b", 2).With("a", 3)

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Equal(t, 3, c.Value("a"))
}

func TestExecutionContext_Merge(t *testing.T) {
	left := ExecutionContext{}.With("a", 1).With("b", 2)
	right := ExecutionContext{}.With("c", 3).With("b", 20)

	merged := left.Merge(right)

	assert.Equal(t, []string{"a", "b", "c"}, merged.Keys())
	assert.Equal(t, map[string]any{"a": 1, "b": 20, "c": 3}, merged.Map())
	assert.Equal(t, 2, left.Value("b"))
}

func TestExecutionContext_Without(t *testing.T) {
	c := ExecutionContext{}.With("a", 1).With(ErrorKey, "boom").With("b", 2)

	out := c.Without(ErrorKey)

	assert.Equal(t, []string{"a", "b"}, out.Keys())
	assert.True(t, c.Has(ErrorKey))
}

func TestExecutionContext_UserKeys(t *testing.T) {
	c := ExecutionContext{}.With("x", 1).With(SwitchOutputKey, 2).With("y", 3)

	assert.Equal(t, []string{"x", "y"}, c.UserKeys())
}

func TestExecutionContext_JSONPreservesOrder(t *testing.T) {
	c := ExecutionContext{}.With("zeta", 1).With("alpha", map[string]any{"k": "v"}).With("mid", []any{1, 2})

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":1,"alpha":{"k":"v"},"mid":[1,2]}`, string(data))
	assert.Equal(t, `{"zeta":1,"alpha":{"k":"v"},"mid":[1,2]}`, string(data))

	var decoded ExecutionContext
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, decoded.Keys())
	assert.Equal(t, float64(1), decoded.Value("zeta"))
}

func TestExecutionContext_UnmarshalRejectsNonObject(t *testing.T) {
	var c ExecutionContext

	err := json.Unmarshal([]byte(`[1,2]`), &c)
	assert.Error(t, err)
}

func TestNewExecutionContext_SortsKeys(t *testing.T) {
	c := NewExecutionContext(map[string]any{"b": 1, "a": 2})

	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestValidateVariableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple", input: "result"},
		{name: "underscore start", input: "_tmp"},
		{name: "digits", input: "item2"},
		{name: "reserved", input: "__error", wantErr: ErrReservedVariableName},
		{name: "leading digit", input: "2fast", wantErr: ErrInvalidVariableName},
		{name: "dash", input: "my-var", wantErr: ErrInvalidVariableName},
		{name: "empty", input: "", wantErr: ErrInvalidVariableName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVariableName(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParsePortID(t *testing.T) {
	node, port, ok := ParsePortID("switch-1:output_2")

	assert.True(t, ok)
	assert.Equal(t, "switch-1", node)
	assert.Equal(t, "output_2", port)
	assert.Equal(t, "switch-1:output_2", MakePortID(node, port))
	assert.Equal(t, "output_2", SwitchPort(2))

	_, _, ok = ParsePortID("no-port")
	assert.False(t, ok)
}

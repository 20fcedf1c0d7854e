package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Reserved context keys. Names starting with ReservedPrefix are engine-internal
// signaling channels and never valid user variable names.
const (
	ReservedPrefix = "__"

	ErrorKey        = "__error"
	SwitchOutputKey = "__switchOutput"
	BranchKey       = "__branch"
	LoopKey         = "__loop"
	// TriggerKey carries the raw trigger payload into the run's trigger node.
	TriggerKey = "__trigger"
)

var (
	ErrInvalidVariableName  = errors.New("invalid variable name")
	ErrReservedVariableName = errors.New("variable name uses the reserved '__' prefix")

	variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateVariableName reports whether name may be used as a user variable.
func ValidateVariableName(name string) error {
	if IsReserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedVariableName, name)
	}

	if !variableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidVariableName, name)
	}

	return nil
}

func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// ExecutionContext is the ordered key/value state threaded through a workflow run.
// The zero value is an empty context. Every operation returns a new context and
// leaves the receiver untouched, so a snapshot handed to a node can be kept as-is.
type ExecutionContext struct {
	keys   []string
	values map[string]any
}

// NewExecutionContext builds a context from a map. Keys are ordered
// lexicographically since Go maps carry no insertion order.
func NewExecutionContext(values map[string]any) ExecutionContext {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	c := ExecutionContext{keys: keys, values: make(map[string]any, len(values))}
	for k, v := range values {
		c.values[k] = v
	}

	return c
}

func (c ExecutionContext) Len() int {
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c ExecutionContext) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)

	return out
}

// UserKeys returns the keys in insertion order, skipping reserved ones.
func (c ExecutionContext) UserKeys() []string {
	out := make([]string, 0, len(c.keys))

	for _, k := range c.keys {
		if !IsReserved(k) {
			out = append(out, k)
		}
	}

	return out
}

func (c ExecutionContext) Get(key string) (any, bool) {
	v, ok := c.values[key]

	return v, ok
}

func (c ExecutionContext) Value(key string) any {
	return c.values[key]
}

func (c ExecutionContext) Has(key string) bool {
	_, ok := c.values[key]

	return ok
}

// With returns a copy with key set to value. Existing keys keep their position.
func (c ExecutionContext) With(key string, value any) ExecutionContext {
	next := c.clone(1)
	if _, exists := next.values[key]; !exists {
		next.keys = append(next.keys, key)
	}

	next.values[key] = value

	return next
}

// Merge returns a copy with every entry of other applied on top, in other's order.
func (c ExecutionContext) Merge(other ExecutionContext) ExecutionContext {
	next := c.clone(other.Len())

	for _, k := range other.keys {
		if _, exists := next.values[k]; !exists {
			next.keys = append(next.keys, k)
		}

		next.values[k] = other.values[k]
	}

	return next
}

// Without returns a copy with the given keys removed.
func (c ExecutionContext) Without(keys ...string) ExecutionContext {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}

	next := ExecutionContext{keys: make([]string, 0, len(c.keys)), values: make(map[string]any, len(c.values))}

	for _, k := range c.keys {
		if _, skip := drop[k]; skip {
			continue
		}

		next.keys = append(next.keys, k)
		next.values[k] = c.values[k]
	}

	return next
}

// Map returns a shallow copy of the entries.
func (c ExecutionContext) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}

	return out
}

func (c ExecutionContext) clone(extra int) ExecutionContext {
	next := ExecutionContext{
		keys:   make([]string, len(c.keys), len(c.keys)+extra),
		values: make(map[string]any, len(c.values)+extra),
	}
	copy(next.keys, c.keys)

	for k, v := range c.values {
		next.values[k] = v
	}

	return next
}

// MarshalJSON encodes the context as a JSON object preserving key order.
func (c ExecutionContext) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal context key %q: %w", k, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
func (c *ExecutionContext) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*c = ExecutionContext{}

		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("execution context must be a JSON object, got %v", tok)
	}

	next := ExecutionContext{values: map[string]any{}}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in execution context", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode context key %q: %w", key, err)
		}

		if _, exists := next.values[key]; !exists {
			next.keys = append(next.keys, key)
		}

		next.values[key] = value
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = next

	return nil
}

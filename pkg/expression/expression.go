// Package expression evaluates small formulas (comparisons, boolean connectives,
// arithmetic, string predicates) against execution context values.
//
// Formulas run inside expr-lang's virtual machine; the environment holds only the
// values passed in.
package expression

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	ErrEmptyExpression = errors.New("empty expression")
	ErrNotInteger      = errors.New("expression did not evaluate to an integer")
)

// Evaluator compiles formulas once and caches the programs. Safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

var defaultEvaluator = NewEvaluator()

// Evaluate runs a formula with the default evaluator.
func Evaluate(formula string, env map[string]any) (any, error) {
	return defaultEvaluator.Evaluate(formula, env)
}

// EvaluateBool runs a formula with the default evaluator and reduces the result to a bool.
func EvaluateBool(formula string, env map[string]any) (bool, error) {
	return defaultEvaluator.EvaluateBool(formula, env)
}

// EvaluateInt runs a formula with the default evaluator and requires an integral result.
func EvaluateInt(formula string, env map[string]any) (int, error) {
	return defaultEvaluator.EvaluateInt(formula, env)
}

func (e *Evaluator) Evaluate(formula string, env map[string]any) (any, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return nil, ErrEmptyExpression
	}

	prg, err := e.program(formula)
	if err != nil {
		return nil, err
	}

	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, fmt.Errorf("evaluation of %q failed: %w", formula, err)
	}

	return out, nil
}

func (e *Evaluator) EvaluateBool(formula string, env map[string]any) (bool, error) {
	out, err := e.Evaluate(formula, env)
	if err != nil {
		return false, err
	}

	return Truthy(out), nil
}

func (e *Evaluator) EvaluateInt(formula string, env map[string]any) (int, error) {
	out, err := e.Evaluate(formula, env)
	if err != nil {
		return 0, err
	}

	n, ok := ToInt(out)
	if !ok {
		return 0, fmt.Errorf("%w: %q gave %v", ErrNotInteger, formula, out)
	}

	return n, nil
}

func (e *Evaluator) program(formula string) (*vm.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[formula]
	e.mu.RUnlock()

	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[formula]; ok {
		return prg, nil
	}

	// Compiled against an empty map environment so the program does not depend
	// on the value types of the first call.
	prg, err := expr.Compile(formula,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", formula, err)
	}

	e.cache[formula] = prg

	return prg, nil
}

// Truthy reduces a value to a boolean: false, nil, zero numbers, empty strings,
// "false", "0" and empty collections are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		s := strings.TrimSpace(strings.ToLower(val))

		return s != "" && s != "false" && s != "0"
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}

	if f, ok := ToFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}

	return true
}

// ToFloat converts numeric values and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt converts integral numbers and integral numeric strings to int.
func ToInt(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	return int(f), true
}

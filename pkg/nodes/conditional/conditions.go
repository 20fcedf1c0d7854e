package conditional

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/nodeflow/pkg/expression"
	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/template"
)

// Supported condition operators.
const (
	OpEquals              = "equals"
	OpNotEquals           = "not_equals"
	OpContains            = "contains"
	OpNotContains         = "not_contains"
	OpStartsWith          = "starts_with"
	OpEndsWith            = "ends_with"
	OpGreaterThan         = "greater_than"
	OpLessThan            = "less_than"
	OpGreaterThanOrEquals = "greater_than_or_equals"
	OpLessThanOrEquals    = "less_than_or_equals"
	OpIsEmpty             = "is_empty"
	OpIsNotEmpty          = "is_not_empty"
	OpIsTrue              = "is_true"
	OpIsFalse             = "is_false"
	OpRegexMatch          = "regex_match"
)

// Condition compares a template-resolved field against a value.
// A field without {{ }} tokens is treated as a context path.
type Condition struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required,oneof=equals not_equals contains not_contains starts_with ends_with greater_than less_than greater_than_or_equals less_than_or_equals is_empty is_not_empty is_true is_false regex_match"`
	Value    any    `json:"value"`
}

// Evaluate reports whether the condition holds for execCtx.
func (c Condition) Evaluate(execCtx models.ExecutionContext) bool {
	field := c.Field
	if !template.HasTokens(field) {
		field = "{{" + field + "}}"
	}

	left := template.Resolve(field, execCtx)
	right := c.resolvedValue(execCtx)

	switch c.Operator {
	case OpEquals:
		return equal(left, right)
	case OpNotEquals:
		return !equal(left, right)
	case OpContains:
		return strings.Contains(left, right)
	case OpNotContains:
		return !strings.Contains(left, right)
	case OpStartsWith:
		return strings.HasPrefix(left, right)
	case OpEndsWith:
		return strings.HasSuffix(left, right)
	case OpGreaterThan:
		return compare(left, right, func(a, b float64) bool { return a > b })
	case OpLessThan:
		return compare(left, right, func(a, b float64) bool { return a < b })
	case OpGreaterThanOrEquals:
		return compare(left, right, func(a, b float64) bool { return a >= b })
	case OpLessThanOrEquals:
		return compare(left, right, func(a, b float64) bool { return a <= b })
	case OpIsEmpty:
		return isEmpty(left)
	case OpIsNotEmpty:
		return !isEmpty(left)
	case OpIsTrue:
		b, err := strconv.ParseBool(strings.TrimSpace(left))

		return err == nil && b
	case OpIsFalse:
		b, err := strconv.ParseBool(strings.TrimSpace(left))

		return err == nil && !b
	case OpRegexMatch:
		re, err := regexp.Compile(right)
		if err != nil {
			return false
		}

		return re.MatchString(left)
	default:
		return false
	}
}

func (c Condition) resolvedValue(execCtx models.ExecutionContext) string {
	if s, ok := c.Value.(string); ok {
		return template.Resolve(s, execCtx)
	}

	return template.Stringify(c.Value)
}

func equal(left, right string) bool {
	if a, ok := expression.ToFloat(left); ok {
		if b, ok := expression.ToFloat(right); ok {
			return a == b
		}
	}

	return left == right
}

func compare(left, right string, cmp func(a, b float64) bool) bool {
	a, okA := expression.ToFloat(left)
	b, okB := expression.ToFloat(right)

	if okA && okB {
		return cmp(a, b)
	}

	// Non-numeric operands compare lexically.
	switch strings.Compare(left, right) {
	case 1:
		return cmp(1, 0)
	case -1:
		return cmp(0, 1)
	default:
		return cmp(0, 0)
	}
}

func isEmpty(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "[]", "{}":
		return true
	default:
		return false
	}
}

// Package failure turns raw node errors into structured, user-facing failures.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes attached to classified failures.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeTimeout         = "TIMEOUT"
	CodeCancelled       = "CANCELLED"
	CodeNetwork         = "NETWORK_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeModelNotFound   = "MODEL_NOT_FOUND"
	CodeInvalidResponse = "INVALID_RESPONSE"
	CodeUnknown         = "UNKNOWN_ERROR"
)

var (
	// ErrInvalidConfig marks node configuration problems found before any side effect.
	ErrInvalidConfig = errors.New("invalid node configuration")

	// ErrModelNotFound is returned by integrations when the requested model identifier is unknown.
	ErrModelNotFound = errors.New("model not found")
)

// Error is the structured failure surfaced to users and to downstream error handlers.
type Error struct {
	Message   string   `json:"message"`
	Guidance  string   `json:"guidance"`
	FixSteps  []string `json:"fixSteps,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
	// Retriable is always false for classified failures; retries belong to the
	// step runtime and only apply before classification.
	Retriable bool `json:"retriable"`
	// AdvisoryRetriable records whether the failure looked transient.
	AdvisoryRetriable bool `json:"advisoryRetriable"`

	Cause error `json:"-"`
}

func (e *Error) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("[%s] %s", e.ErrorCode, e.Message)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Map renders the error as a plain value for the execution context.
func (e *Error) Map() map[string]any {
	steps := make([]any, len(e.FixSteps))
	for i, s := range e.FixSteps {
		steps[i] = s
	}

	out := map[string]any{
		"message":           e.Message,
		"guidance":          e.Guidance,
		"fixSteps":          steps,
		"retriable":         e.Retriable,
		"advisoryRetriable": e.AdvisoryRetriable,
	}
	if e.ErrorCode != "" {
		out["errorCode"] = e.ErrorCode
	}

	return out
}

// Config builds the non-retriable error reported for an invalid configuration field.
func Config(field, reason string) *Error {
	return &Error{
		Message:   fmt.Sprintf("invalid configuration for field '%s': %s", field, reason),
		Guidance:  "The node configuration is incomplete or malformed.",
		FixSteps:  []string{fmt.Sprintf("Open the node settings and fix the '%s' field.", field)},
		ErrorCode: CodeInvalidConfig,
		Cause:     fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason),
	}
}

// Missing is the configuration error for an absent required field.
func Missing(field string) *Error {
	fe := Config(field, "field is required")
	fe.Message = fmt.Sprintf("missing required field '%s'", field)

	return fe
}

// As extracts a structured failure from err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	fe, ok := As(err)

	return ok && !fe.Retriable
}

// ModelNotFound wraps ErrModelNotFound with the identifier that was requested.
func ModelNotFound(model string) error {
	return fmt.Errorf("%w: %s", ErrModelNotFound, strings.TrimSpace(model))
}

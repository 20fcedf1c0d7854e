package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StatusCoder is implemented by errors carrying an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// Classify maps an arbitrary error to a structured failure. hint carries extra
// context such as the model identifier that was attempted. Already structured
// errors are returned unchanged.
func Classify(err error, hint string) *Error {
	if err == nil {
		return nil
	}

	if fe, ok := As(err); ok {
		return fe
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fromValidation(validationErrs, err)
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return &Error{
			Message:   err.Error(),
			Guidance:  "The node configuration is incomplete or malformed.",
			FixSteps:  []string{"Review the node settings and fill in every required field."},
			ErrorCode: CodeInvalidConfig,
			Cause:     err,
		}
	case errors.Is(err, ErrModelNotFound):
		msg := "The requested model does not exist or is not available to this account."
		if hint != "" {
			msg += fmt.Sprintf(" Attempted model: %s", hint)
		}

		return &Error{
			Message:   msg,
			Guidance:  "Pick a model identifier supported by the provider.",
			FixSteps:  []string{"Check the model name for typos.", "Select a model from the provider's list."},
			ErrorCode: CodeModelNotFound,
			Cause:     err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Message:           "The operation timed out.",
			Guidance:          "The remote service took too long to respond.",
			FixSteps:          []string{"Try again later.", "Increase the timeout if the node supports it."},
			ErrorCode:         CodeTimeout,
			AdvisoryRetriable: true,
			Cause:             err,
		}
	case errors.Is(err, context.Canceled):
		return &Error{
			Message:   "The operation was cancelled.",
			Guidance:  "The run was stopped before this node finished.",
			ErrorCode: CodeCancelled,
			Cause:     err,
		}
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return fromStatus(coder.StatusCode(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		fe := &Error{
			Message:           "Could not reach the remote service.",
			Guidance:          "A network error occurred while calling an external service.",
			FixSteps:          []string{"Verify the URL and that the service is reachable."},
			ErrorCode:         CodeNetwork,
			AdvisoryRetriable: true,
			Cause:             err,
		}
		if netErr.Timeout() {
			fe.Message = "The remote service did not respond in time."
			fe.ErrorCode = CodeTimeout
		}

		return fe
	}

	var syntaxErr *json.SyntaxError

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{
			Message:   "Received a response that could not be parsed.",
			Guidance:  "The remote service returned malformed or unexpected data.",
			FixSteps:  []string{"Check that the endpoint returns JSON."},
			ErrorCode: CodeInvalidResponse,
			Cause:     err,
		}
	}

	return &Error{
		Message:           err.Error(),
		Guidance:          "An unexpected error occurred while running this node.",
		FixSteps:          []string{"Check the node configuration and try again."},
		ErrorCode:         CodeUnknown,
		AdvisoryRetriable: looksTransient(err),
		Cause:             err,
	}
}

func fromStatus(status int, err error) *Error {
	fe := &Error{Cause: err}

	switch {
	case status == http.StatusUnauthorized:
		fe.Message = "Authentication with the remote service failed."
		fe.Guidance = "The credentials were rejected."
		fe.FixSteps = []string{"Reconnect the account or update the credentials."}
		fe.ErrorCode = CodeUnauthorized
	case status == http.StatusForbidden:
		fe.Message = "The remote service denied access."
		fe.Guidance = "The credentials lack the permissions this operation requires."
		fe.FixSteps = []string{"Grant the missing permissions and try again."}
		fe.ErrorCode = CodeForbidden
	case status == http.StatusNotFound:
		fe.Message = "The requested resource was not found."
		fe.Guidance = "The remote service returned 404."
		fe.FixSteps = []string{"Check identifiers and URLs in the node configuration."}
		fe.ErrorCode = CodeNotFound
	case status == http.StatusTooManyRequests:
		fe.Message = "Rate limit exceeded."
		fe.Guidance = "The remote service is throttling requests."
		fe.FixSteps = []string{"Wait before running the workflow again.", "Reduce the request frequency."}
		fe.ErrorCode = CodeRateLimited
		fe.AdvisoryRetriable = true
	case status >= http.StatusInternalServerError:
		fe.Message = fmt.Sprintf("The remote service failed with status %d.", status)
		fe.Guidance = "The error is on the remote side."
		fe.FixSteps = []string{"Try again later."}
		fe.ErrorCode = CodeUpstream
		fe.AdvisoryRetriable = true
	default:
		fe.Message = fmt.Sprintf("The remote service rejected the request with status %d.", status)
		fe.Guidance = "The request was not accepted."
		fe.FixSteps = []string{"Check the request parameters."}
		fe.ErrorCode = CodeUnknown
	}

	return fe
}

func fromValidation(errs validator.ValidationErrors, cause error) *Error {
	fields := make([]string, 0, len(errs))
	steps := make([]string, 0, len(errs))

	for _, fieldErr := range errs {
		name := fieldErr.Field()
		fields = append(fields, name)

		switch fieldErr.Tag() {
		case "required", "required_if", "required_without":
			steps = append(steps, fmt.Sprintf("Set the '%s' field.", name))
		case "oneof":
			steps = append(steps, fmt.Sprintf("Set '%s' to one of: %s.", name, fieldErr.Param()))
		default:
			steps = append(steps, fmt.Sprintf("Fix the '%s' field (%s).", name, fieldErr.Tag()))
		}
	}

	return &Error{
		Message:   "invalid configuration: " + strings.Join(fields, ", "),
		Guidance:  "The node configuration is incomplete or malformed.",
		FixSteps:  steps,
		ErrorCode: CodeInvalidConfig,
		Cause:     cause,
	}
}

func looksTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "broken pipe", "temporary failure", "i/o timeout", "unavailable"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

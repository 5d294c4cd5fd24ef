package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/events"
	"github.com/otis-tran/demo-service/internal/task"
)

// ErrConnectionNotFound is returned for an unknown calculator connection ID.
var ErrConnectionNotFound = errors.New("connection not found")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, ErrConnectionNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrNotConnected),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrServiceStopped),
		errors.Is(err, task.ErrNotPending):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Temporarily unable to accept work
	case errors.Is(err, task.ErrSchedulerStopped),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandlers):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrConnectionNotFound):
		return "Connection not found"
	case errors.Is(err, domain.ErrNotConnected):
		return "Connection is not bound"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Command not allowed in the current state"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "Task is already submitted"
	case errors.Is(err, domain.ErrServiceStopped):
		return "Service is stopped"
	case errors.Is(err, task.ErrNotPending):
		return "Task is no longer waiting on its conditions"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "Invalid argument: cannot divide by zero"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	case errors.Is(err, task.ErrSchedulerStopped),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandlers):
		return "Service is temporarily unable to accept work"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'OperandsRequest.A' Error:Field validation for 'A' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// respondWithMappedError writes the status and safe message for err.
func respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

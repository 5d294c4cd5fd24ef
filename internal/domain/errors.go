package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrTaskFailure wraps any error or panic raised inside a task body.
	// It only ever surfaces as part of a terminal failure result.
	ErrTaskFailure = errors.New("task failed")

	// ErrInvalidArgument is returned when an operation receives an argument
	// it cannot accept, such as a zero divisor.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConnected is returned when a bound-service method is invoked
	// on a connection that is not (or no longer) bound.
	ErrNotConnected = errors.New("service not connected")

	// ErrInvalidTransition is returned when a command has no defined
	// transition from the current state and the service rejects it.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrRunnerUsed is returned when a single-use runner is invoked again.
	ErrRunnerUsed = errors.New("runner already used")

	// ErrDuplicateSubmission is returned when a task identity already has
	// an outstanding attempt.
	ErrDuplicateSubmission = errors.New("task already submitted")

	// ErrServiceStopped is returned when an operation targets a service
	// instance that has been destroyed.
	ErrServiceStopped = errors.New("service stopped")

	// ErrValidation is returned when input fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")
)

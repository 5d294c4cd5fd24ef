package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/domain"
)

// Outcome tags a TaskResult.
type Outcome string

// Result outcomes
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// TaskResult is the terminal outcome of one task execution.
// Exactly one is produced per execution.
type TaskResult struct {
	TaskID      uuid.UUID `json:"task_id"`
	TaskType    string    `json:"task_type"`
	Outcome     Outcome   `json:"outcome"`
	Payload     []byte    `json:"payload,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	err error
}

// Success builds a successful result for task.
func Success(task Task, payload []byte, startedAt time.Time) TaskResult {
	return TaskResult{
		TaskID:      task.ID(),
		TaskType:    task.Type(),
		Outcome:     OutcomeSuccess,
		Payload:     payload,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}
}

// Failure builds a failed result for task. The returned result's Err wraps
// both domain.ErrTaskFailure and cause.
func Failure(task Task, cause error, startedAt time.Time) TaskResult {
	return TaskResult{
		TaskID:      task.ID(),
		TaskType:    task.Type(),
		Outcome:     OutcomeFailure,
		Reason:      cause.Error(),
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		err:         fmt.Errorf("%w: %w", domain.ErrTaskFailure, cause),
	}
}

// Succeeded reports whether the task completed successfully.
func (r TaskResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Err returns nil for a successful result, and an error wrapping
// domain.ErrTaskFailure otherwise.
func (r TaskResult) Err() error {
	if r.Succeeded() {
		return nil
	}
	if r.err == nil {
		return fmt.Errorf("%w: %s", domain.ErrTaskFailure, r.Reason)
	}
	return r.err
}

// Duration is the wall time between start and completion.
func (r TaskResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusQueued is only reported by scheduler submissions that were
	// released to the worker queue; stored records stay pending until a
	// worker picks them up.
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transition can follow s.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Task type constants
const (
	// TaskTypeDataSync is the deferred data sync performed by the sync worker.
	TaskTypeDataSync = "data_sync"
)

// Common errors
var (
	ErrNilTask      = errors.New("task cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrNilStore     = errors.New("task store cannot be nil")
	ErrTaskNotFound = errors.New("task not found")
)

// Task represents a unit of background work to be processed.
// A task is immutable once submitted.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task input as a byte slice, possibly nil
	Payload() []byte

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// OutputProvider is implemented by tasks that produce an output payload.
// Output is read once, after Execute returned nil.
type OutputProvider interface {
	Output() []byte
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskRecord is the persisted bookkeeping for one task.
type TaskRecord struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskStore defines the interface for persisting task bookkeeping.
// Task bodies are never persisted, only their identity and status.
type TaskStore interface {
	// SaveTask persists a task in "pending" status
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetTask retrieves a single task record, or ErrTaskNotFound
	GetTask(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error)

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]TaskRecord, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error)
}

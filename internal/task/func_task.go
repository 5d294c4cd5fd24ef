package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskFunc is a task body. The returned bytes become the success payload.
type TaskFunc func(ctx context.Context) ([]byte, error)

// FuncTask adapts a plain function into a Task.
type FuncTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	fn       TaskFunc
	output   []byte
}

// NewFuncTask creates a task with a fresh identity running fn.
func NewFuncTask(taskType string, payload []byte, fn TaskFunc) *FuncTask {
	return NewFuncTaskWithID(uuid.New(), taskType, payload, fn)
}

// NewFuncTaskWithID is NewFuncTask with a caller-chosen identity.
func NewFuncTaskWithID(id uuid.UUID, taskType string, payload []byte, fn TaskFunc) *FuncTask {
	return &FuncTask{
		id:       id,
		taskType: taskType,
		payload:  payload,
		fn:       fn,
	}
}

// ID returns the task's unique identifier
func (t *FuncTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *FuncTask) Type() string {
	return t.taskType
}

// Payload returns the task input
func (t *FuncTask) Payload() []byte {
	return t.payload
}

// Execute runs the wrapped function and keeps its output.
func (t *FuncTask) Execute(ctx context.Context) error {
	out, err := t.fn(ctx)
	if err != nil {
		return err
	}
	t.output = out
	return nil
}

// Output returns what the last successful Execute produced.
func (t *FuncTask) Output() []byte {
	return t.output
}

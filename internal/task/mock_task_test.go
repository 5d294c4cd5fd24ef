package task

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	output   []byte
	execFn   func(ctx context.Context) error
	execs    atomic.Int32
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte("test payload"),
	}
}

func (m *mockTask) ID() uuid.UUID   { return m.id }
func (m *mockTask) Type() string    { return m.taskType }
func (m *mockTask) Payload() []byte { return m.payload }
func (m *mockTask) Output() []byte  { return m.output }

func (m *mockTask) Execute(ctx context.Context) error {
	m.execs.Add(1)
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

// blockingTask returns a task that waits for release or cancellation.
func blockingTask(release <-chan struct{}) *mockTask {
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return task
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// receiveResult waits for a single result or fails the test.
func receiveResult(t *testing.T, results <-chan TaskResult) TaskResult {
	t.Helper()
	select {
	case res, ok := <-results:
		require.True(t, ok, "result channel closed without a result")
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task result")
		return TaskResult{}
	}
}

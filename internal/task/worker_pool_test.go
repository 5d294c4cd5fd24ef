package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTaskQueue implements TaskQueueReader for testing
type mockTaskQueue struct {
	ch chan Task
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		ch: make(chan Task, 10),
	}
}

func (m *mockTaskQueue) GetChannel() <-chan Task {
	return m.ch
}

func TestNewWorkerPool(t *testing.T) {
	logger := setupTestLogger()
	taskQueue := newMockTaskQueue()

	pool := NewWorkerPool(taskQueue, nil, WorkerPoolConfig{WorkerCount: 5}, logger)
	assert.Equal(t, 5, pool.workerCount)
	assert.Equal(t, taskQueue, pool.taskQueue)
	assert.Nil(t, pool.resultHandler)

	// Invalid worker counts default to 1
	pool = NewWorkerPool(taskQueue, nil, WorkerPoolConfig{WorkerCount: 0}, logger)
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(taskQueue, nil, WorkerPoolConfig{WorkerCount: -5}, logger)
	assert.Equal(t, 1, pool.workerCount)

	assert.Equal(t, 2, DefaultWorkerPoolConfig().WorkerCount)
}

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	taskQueue := newMockTaskQueue()
	store := NewMemoryTaskStore()
	pool := NewWorkerPool(taskQueue, store, WorkerPoolConfig{WorkerCount: 2}, setupTestLogger())

	results := make(chan TaskResult, 3)
	pool.SetResultHandler(func(res TaskResult) { results <- res })
	pool.Start()
	pool.Start() // idempotent
	defer pool.Stop()

	ids := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		task := newMockTask()
		require.NoError(t, store.SaveTask(context.Background(), task))
		ids[task.ID()] = true
		taskQueue.ch <- task
	}

	for i := 0; i < 3; i++ {
		res := receiveResult(t, results)
		assert.True(t, res.Succeeded())
		assert.True(t, ids[res.TaskID])
		delete(ids, res.TaskID)

		require.Eventually(t, func() bool {
			rec, err := store.GetTask(context.Background(), res.TaskID)
			return err == nil && rec.Status == TaskStatusCompleted
		}, time.Second, 10*time.Millisecond)
	}
	assert.Empty(t, ids, "every task must report exactly once")
}

func TestWorkerPool_FailuresReachHandler(t *testing.T) {
	taskQueue := newMockTaskQueue()
	pool := NewWorkerPool(taskQueue, nil, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	results := make(chan TaskResult, 1)
	pool.SetResultHandler(func(res TaskResult) { results <- res })
	pool.Start()
	defer pool.Stop()

	task := newMockTask()
	task.execFn = func(ctx context.Context) error { panic("worker body exploded") }
	taskQueue.ch <- task

	res := receiveResult(t, results)
	assert.False(t, res.Succeeded())
	assert.Contains(t, res.Reason, "worker body exploded")
}

func TestWorkerPool_StopCancelsInFlight(t *testing.T) {
	taskQueue := newMockTaskQueue()
	pool := NewWorkerPool(taskQueue, nil, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	var mu sync.Mutex
	var got []TaskResult
	pool.SetResultHandler(func(res TaskResult) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, res)
	})
	pool.Start()

	started := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	taskQueue.ch <- task
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].Err(), context.Canceled)
}

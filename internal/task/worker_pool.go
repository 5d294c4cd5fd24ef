package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. Every task runs through its own single-use Runner.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// store receives status bookkeeping for every execution; may be nil
	store TaskStore

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is the parent of every runner; cancelling it cancels in-flight tasks
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger

	// resultHandler receives every task result. If nil, results are only logged
	resultHandler func(result TaskResult)

	startOnce sync.Once
	stopOnce  sync.Once
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	taskQueue TaskQueueReader,
	store TaskStore,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		store:       store,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetResultHandler sets the function receiving every task result.
// It must be called before Start.
func (p *WorkerPool) SetResultHandler(handler func(result TaskResult)) {
	p.resultHandler = handler
}

// Start launches the worker goroutines. Subsequent calls are no-ops.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount)
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop cancels in-flight tasks and waits for all workers to exit.
// Tasks still waiting in the queue are left untouched.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")
		p.cancel()
		p.wg.Wait()
		p.logger.Info("worker pool stopped")
	})
}

// worker processes tasks from the queue
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			if p.ctx.Err() != nil {
				p.logger.Debug("pool stopping, leaving task unprocessed",
					"worker_id", id,
					"task_id", task.ID())
				return
			}

			p.processTask(task, id)
		}
	}
}

// processTask runs a single task through a fresh Runner and forwards the result
func (p *WorkerPool) processTask(task Task, workerID int) {
	logger := p.logger.With("worker_id", workerID)

	runner := NewRunner(logger, WithStore(p.store))
	results, err := runner.Run(p.ctx, task)
	if err != nil {
		// A fresh runner only fails on a nil task.
		logger.Error("failed to start task", "error", err)
		return
	}

	result := <-results
	if p.resultHandler != nil {
		p.resultHandler(result)
	}
}

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/platform/logger"
	"github.com/otis-tran/demo-service/internal/redact"
)

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStore makes the runner record processing/completed/failed status.
// The task must already have been saved by the caller.
func WithStore(store TaskStore) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

// WithCompletionHandler registers a callback that receives the result
// exactly once, after it has been delivered on the result channel.
func WithCompletionHandler(handler func(TaskResult)) RunnerOption {
	return func(r *Runner) {
		r.onComplete = handler
	}
}

// Runner executes exactly one task body on its own goroutine and reports
// exactly one TaskResult. A Runner is single-use: create a new one for every
// execution.
type Runner struct {
	store      TaskStore
	logger     *slog.Logger
	onComplete func(TaskResult)

	used atomic.Bool
	done chan struct{}

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

// NewRunner creates a new single-use Runner
func NewRunner(logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		logger: logger,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts task off the caller's path. The returned channel receives the
// single result and is then closed. Errors and panics raised by the task body
// become a failure result; they are never returned here.
//
// Cancelling ctx, or calling Cancel, cancels the body. Run returns
// domain.ErrRunnerUsed if the runner was already used.
func (r *Runner) Run(ctx context.Context, task Task) (<-chan TaskResult, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if !r.used.CompareAndSwap(false, true) {
		return nil, domain.ErrRunnerUsed
	}

	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.cancel = cancel
	if r.cancelled {
		cancel()
	}
	r.mu.Unlock()

	results := make(chan TaskResult, 1)
	go r.execute(runCtx, cancel, task, results)

	return results, nil
}

// Cancel cancels the in-flight task body. It is safe to call at any time,
// including before Run; a cancelled runner runs its task with a done context.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
}

// Done is closed once the result has been delivered.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// execute handles execution of the single task
func (r *Runner) execute(
	ctx context.Context,
	cancel context.CancelFunc,
	task Task,
	results chan<- TaskResult,
) {
	defer close(r.done)
	defer cancel()

	log := r.logger.With("task_id", task.ID(), "task_type", task.Type())
	ctx = logger.WithContext(ctx, log)

	// Bookkeeping must survive cancellation of the body.
	bookkeeping := context.WithoutCancel(ctx)

	startedAt := time.Now().UTC()
	r.updateStatus(bookkeeping, log, task, TaskStatusProcessing, "")

	log.Info("processing task")

	var result TaskResult
	if err := invoke(ctx, task); err != nil {
		status := TaskStatusFailed
		if errors.Is(err, context.Canceled) {
			status = TaskStatusCancelled
		}
		log.Error("task execution failed", "error", err, "status", status)
		r.updateStatus(bookkeeping, log, task, status, redact.Error(err))
		result = Failure(task, err, startedAt)
	} else {
		var payload []byte
		if p, ok := task.(OutputProvider); ok {
			payload = p.Output()
		}
		log.Info("task completed successfully", "duration", time.Since(startedAt))
		r.updateStatus(bookkeeping, log, task, TaskStatusCompleted, "")
		result = Success(task, payload, startedAt)
	}

	results <- result
	close(results)

	if r.onComplete != nil {
		r.onComplete(result)
	}
}

func (r *Runner) updateStatus(
	ctx context.Context,
	log *slog.Logger,
	task Task,
	status TaskStatus,
	errorMsg string,
) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), status, errorMsg); err != nil {
		log.Error("failed to update task status", "status", status, "error", err)
	}
}

// invoke calls task.Execute, converting a panic into an error.
func invoke(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

// Await blocks until a result arrives on results or ctx is done.
func Await(ctx context.Context, results <-chan TaskResult) (TaskResult, error) {
	select {
	case res, ok := <-results:
		if !ok {
			return TaskResult{}, errors.New("result already consumed")
		}
		return res, nil
	case <-ctx.Done():
		return TaskResult{}, ctx.Err()
	}
}

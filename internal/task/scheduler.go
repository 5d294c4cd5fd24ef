package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/redact"
)

// Scheduler errors
var (
	ErrSchedulerStopped = errors.New("scheduler is stopped")
	ErrNotPending       = errors.New("task is no longer waiting on its constraints")
	ErrCancelled        = errors.New("task cancelled before it ran")
)

// SchedulerConfig holds configuration for the constrained scheduler
type SchedulerConfig struct {
	// WorkerCount determines how many tasks may execute concurrently
	WorkerCount int

	// QueueSize bounds the number of released tasks waiting for a worker
	QueueSize int

	// InitialConditions seeds the condition state, e.g. whether the
	// network is already connected at start-up
	InitialConditions map[Condition]bool

	// FinishedRetention is how long a finished submission stays available
	// through Lookup. Older ones are only visible through the TaskStore.
	FinishedRetention time.Duration

	// MaxFinished caps how many finished submissions are kept for Lookup
	MaxFinished int
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WorkerCount:       2,
		QueueSize:         100,
		FinishedRetention: 10 * time.Minute,
		MaxFinished:       1000,
	}
}

// Work tracks one submission to the ConstrainedScheduler.
type Work struct {
	task        Task
	constraints Constraints
	submittedAt time.Time

	mu     sync.Mutex
	status TaskStatus
	final  *TaskResult

	results chan TaskResult
	done    chan struct{}
}

func newWork(task Task, constraints Constraints) *Work {
	return &Work{
		task:        task,
		constraints: append(Constraints(nil), constraints...),
		submittedAt: time.Now().UTC(),
		status:      TaskStatusPending,
		results:     make(chan TaskResult, 1),
		done:        make(chan struct{}),
	}
}

// ID returns the identity of the submitted task
func (w *Work) ID() uuid.UUID {
	return w.task.ID()
}

// Type returns the type of the submitted task
func (w *Work) Type() string {
	return w.task.Type()
}

// Constraints returns a copy of the conditions the task was submitted with
func (w *Work) Constraints() Constraints {
	return append(Constraints(nil), w.constraints...)
}

// SubmittedAt returns when the task was accepted
func (w *Work) SubmittedAt() time.Time {
	return w.submittedAt
}

// Status returns the current status of the submission
func (w *Work) Status() TaskStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Result returns a channel that delivers the terminal result once and is
// then closed.
func (w *Work) Result() <-chan TaskResult {
	return w.results
}

// Done is closed once the submission reached a terminal status.
func (w *Work) Done() <-chan struct{} {
	return w.done
}

// Outcome returns the terminal result without consuming the Result channel.
func (w *Work) Outcome() (TaskResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.final == nil {
		return TaskResult{}, false
	}
	return *w.final, true
}

func (w *Work) setStatus(status TaskStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.status.IsTerminal() {
		w.status = status
	}
}

// resolve records the terminal result. Only the first call has any effect.
func (w *Work) resolve(result TaskResult, status TaskStatus) bool {
	w.mu.Lock()
	if w.final != nil {
		w.mu.Unlock()
		return false
	}
	w.final = &result
	w.status = status
	w.mu.Unlock()

	w.results <- result
	close(w.results)
	close(w.done)
	return true
}

// scheduledTask marks its Work as processing once a worker picks it up.
type scheduledTask struct {
	Task
	work *Work
}

func (t *scheduledTask) Execute(ctx context.Context) error {
	t.work.setStatus(TaskStatusProcessing)
	return t.Task.Execute(ctx)
}

func (t *scheduledTask) Output() []byte {
	if p, ok := t.Task.(OutputProvider); ok {
		return p.Output()
	}
	return nil
}

// ConstrainedScheduler runs each submitted task exactly once, as soon as its
// constraints are satisfied by the host-delivered condition state.
type ConstrainedScheduler struct {
	store  TaskStore
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger

	retention   time.Duration
	maxFinished int
	now         func() time.Time

	mu         sync.Mutex
	conditions map[Condition]bool
	works      map[uuid.UUID]*Work
	pending    []*Work
	finished   []finishedWork
	started    bool
	stopped    bool
}

// finishedWork records when a submission reached its terminal status.
type finishedWork struct {
	work *Work
	at   time.Time
}

// NewConstrainedScheduler creates a scheduler backed by store
func NewConstrainedScheduler(
	store TaskStore,
	config SchedulerConfig,
	logger *slog.Logger,
) (*ConstrainedScheduler, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	defaults := DefaultSchedulerConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.FinishedRetention <= 0 {
		config.FinishedRetention = defaults.FinishedRetention
	}
	if config.MaxFinished <= 0 {
		config.MaxFinished = defaults.MaxFinished
	}

	logger = logger.With("component", "constrained_scheduler")

	conditions := make(map[Condition]bool, len(config.InitialConditions))
	for c, v := range config.InitialConditions {
		conditions[c] = v
	}

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, store, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)

	s := &ConstrainedScheduler{
		store:       store,
		queue:       queue,
		pool:        pool,
		logger:      logger,
		retention:   config.FinishedRetention,
		maxFinished: config.MaxFinished,
		now:         time.Now,
		conditions:  conditions,
		works:       make(map[uuid.UUID]*Work),
	}
	pool.SetResultHandler(s.handleResult)

	return s, nil
}

// Start marks records orphaned by a previous process as failed and starts
// the workers. Task bodies are not persisted, so interrupted tasks cannot be
// resumed; callers must resubmit them.
func (s *ConstrainedScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if err := s.failOrphans(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	s.pool.Start()
	return nil
}

func (s *ConstrainedScheduler) failOrphans(ctx context.Context) error {
	pendingTasks, err := s.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processingTasks, err := s.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	s.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, rec := range append(pendingTasks, processingTasks...) {
		s.mu.Lock()
		_, live := s.works[rec.ID]
		s.mu.Unlock()
		if live {
			continue
		}
		if err := s.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, "interrupted by restart"); err != nil {
			s.logger.Error("failed to mark orphaned task as failed",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
		}
	}

	return nil
}

// Submit accepts task for a single execution once constraints hold.
// A task identity may only have one outstanding submission; once its result
// is final it may be submitted again.
func (s *ConstrainedScheduler) Submit(ctx context.Context, task Task, constraints Constraints) (*Work, error) {
	if task == nil {
		return nil, ErrNilTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrSchedulerStopped
	}
	s.evictFinishedLocked()
	if existing, ok := s.works[task.ID()]; ok && !existing.Status().IsTerminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSubmission, task.ID())
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	work := newWork(task, constraints)
	s.works[task.ID()] = work

	logger := s.logger.With("task_id", task.ID(), "task_type", task.Type())

	if !work.constraints.SatisfiedBy(s.conditions) {
		s.pending = append(s.pending, work)
		logger.Info("task pending until constraints are met", "constraints", work.constraints)
		return work, nil
	}

	if err := s.release(ctx, work); err != nil {
		return nil, err
	}
	logger.Debug("task released immediately")
	return work, nil
}

// release enqueues work; on failure the submission is failed terminally.
// Callers hold s.mu.
func (s *ConstrainedScheduler) release(ctx context.Context, work *Work) error {
	// Marked before enqueueing so a fast worker's processing status wins.
	work.setStatus(TaskStatusQueued)
	err := s.queue.Enqueue(&scheduledTask{Task: work.task, work: work})
	if err == nil {
		return nil
	}

	s.logger.Error("failed to enqueue task",
		"task_id", work.ID(),
		"task_type", work.Type(),
		"error", err)

	if updateErr := s.store.UpdateTaskStatus(ctx, work.ID(), TaskStatusFailed, redact.Error(err)); updateErr != nil {
		s.logger.Error("failed to update task status to failed", "task_id", work.ID(), "error", updateErr)
	}
	if work.resolve(Failure(work.task, err, time.Now().UTC()), TaskStatusFailed) {
		s.retireLocked(work)
	}

	return fmt.Errorf("failed to enqueue task: %w", err)
}

// retire schedules a finished submission for eviction from Lookup.
func (s *ConstrainedScheduler) retire(work *Work) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retireLocked(work)
}

func (s *ConstrainedScheduler) retireLocked(work *Work) {
	s.finished = append(s.finished, finishedWork{work: work, at: s.now()})
	s.evictFinishedLocked()
}

// evictFinishedLocked drops finished submissions older than the retention
// period or beyond the cap, oldest first. Callers hold s.mu.
func (s *ConstrainedScheduler) evictFinishedLocked() {
	now := s.now()
	n := 0
	for n < len(s.finished) {
		f := s.finished[n]
		if len(s.finished)-n <= s.maxFinished && now.Sub(f.at) < s.retention {
			break
		}
		// A resubmission replaces the entry; leave it alone.
		if s.works[f.work.ID()] == f.work {
			delete(s.works, f.work.ID())
		}
		n++
	}
	if n > 0 {
		s.finished = append(s.finished[:0], s.finished[n:]...)
	}
}

// SetCondition records a host-delivered condition change and releases every
// pending task whose constraints are now satisfied, in submission order.
func (s *ConstrainedScheduler) SetCondition(cond Condition, met bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.conditions[cond]
	s.conditions[cond] = met
	if prev != met {
		s.logger.Info("condition changed", "condition", cond, "met", met)
	}

	if !met || s.stopped {
		return
	}

	remaining := s.pending[:0]
	released := 0
	for _, work := range s.pending {
		if !work.constraints.SatisfiedBy(s.conditions) {
			remaining = append(remaining, work)
			continue
		}
		if err := s.release(context.Background(), work); err == nil {
			released++
		}
	}
	for i := len(remaining); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = remaining

	if released > 0 {
		s.logger.Info("released pending tasks", "condition", cond, "count", released)
	}
}

// Condition reports the current value of cond.
func (s *ConstrainedScheduler) Condition(cond Condition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conditions[cond]
}

// Lookup returns the submission for id. Finished submissions stay available
// until they are evicted by the retention period or the MaxFinished cap.
func (s *ConstrainedScheduler) Lookup(id uuid.UUID) (*Work, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.works[id]
	return w, ok
}

// PendingCount returns how many submissions are waiting on constraints.
func (s *ConstrainedScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Cancel withdraws a submission that is still waiting on its constraints.
// Queued or running tasks are not affected and yield ErrNotPending; they are
// only cancelled by Stop.
func (s *ConstrainedScheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	work, ok := s.works[id]
	if !ok {
		s.mu.Unlock()
		return ErrTaskNotFound
	}

	idx := -1
	for i, w := range s.pending {
		if w == work {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotPending
	}
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	s.mu.Unlock()

	s.finish(ctx, work, ErrCancelled)
	return nil
}

// finish fails work with cause and records it as cancelled.
func (s *ConstrainedScheduler) finish(ctx context.Context, work *Work, cause error) {
	if err := s.store.UpdateTaskStatus(ctx, work.ID(), TaskStatusCancelled, cause.Error()); err != nil {
		s.logger.Error("failed to update task status to cancelled", "task_id", work.ID(), "error", err)
	}
	if work.resolve(Failure(work.task, cause, time.Now().UTC()), TaskStatusCancelled) {
		s.retire(work)
		s.logger.Info("task cancelled", "task_id", work.ID(), "task_type", work.Type(), "reason", cause)
	}
}

// handleResult receives results from the worker pool
func (s *ConstrainedScheduler) handleResult(result TaskResult) {
	s.mu.Lock()
	work, ok := s.works[result.TaskID]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("result for unknown task", "task_id", result.TaskID)
		return
	}

	status := TaskStatusCompleted
	if !result.Succeeded() {
		status = TaskStatusFailed
		if errors.Is(result.Err(), context.Canceled) {
			status = TaskStatusCancelled
		}
	}
	if work.resolve(result, status) {
		s.retire(work)
	}
}

// Stop cancels running tasks, waits for the workers to exit and cancels every
// submission that never ran.
func (s *ConstrainedScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()

	s.pool.Stop()
	s.queue.Close()

	s.mu.Lock()
	var unfinished []*Work
	for _, w := range s.works {
		if !w.Status().IsTerminal() {
			unfinished = append(unfinished, w)
		}
	}
	s.mu.Unlock()

	for _, w := range unfinished {
		s.finish(context.Background(), w, ErrSchedulerStopped)
	}

	s.logger.Info("scheduler stopped", "cancelled_count", len(unfinished))
}

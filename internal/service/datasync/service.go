package datasync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/task"
)

// TaskTypeSyncService identifies runs of the fire-and-forget service.
const TaskTypeSyncService = "data_sync_service"

// Status is a snapshot of the service.
type Status struct {
	State      domain.ServiceState `json:"state"`
	RunID      *uuid.UUID          `json:"run_id,omitempty"`
	Runs       int                 `json:"runs"`
	LastResult *task.TaskResult    `json:"last_result,omitempty"`
}

// Service runs one sync at a time and stops itself when the sync finishes.
// Starting it again after it stopped launches a new run.
type Service struct {
	cfg    config.SyncConfig
	logger *slog.Logger

	mu         sync.Mutex
	state      domain.ServiceState
	destroyed  bool
	runID      uuid.UUID
	runner     *task.Runner
	runs       int
	lastResult *task.TaskResult
}

// NewService creates a Service in the created state.
func NewService(cfg config.SyncConfig, logger *slog.Logger) *Service {
	s := &Service{
		cfg:    cfg,
		logger: logger.With("component", "data_sync_service"),
		state:  domain.ServiceCreated,
	}
	s.logger.Info("service created")
	return s
}

// Start launches a sync run and returns its ID without waiting for it.
// If a run is already active its ID is returned and started is false.
func (s *Service) Start(ctx context.Context) (runID uuid.UUID, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return uuid.Nil, false, domain.ErrServiceStopped
	}
	if s.state == domain.ServiceRunning {
		s.logger.Debug("sync already running", "run_id", s.runID)
		return s.runID, false, nil
	}

	log := s.logger
	body := task.NewFuncTask(TaskTypeSyncService, nil, func(ctx context.Context) ([]byte, error) {
		return runSteps(ctx, log, s.cfg.Steps, s.cfg.StepDelay)
	})

	runner := task.NewRunner(s.logger, task.WithCompletionHandler(s.finish))
	// The run outlives the request that started it; only Destroy cancels it.
	if _, err := runner.Run(context.WithoutCancel(ctx), body); err != nil {
		return uuid.Nil, false, err
	}

	s.runID = body.ID()
	s.runner = runner
	s.runs++
	s.state = domain.ServiceRunning
	s.logger.Info("service started", "run_id", s.runID)
	return s.runID, true, nil
}

// finish records the result and stops the service.
func (s *Service) finish(result task.TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastResult = &result
	s.state = domain.ServiceStopped
	if result.Succeeded() {
		s.logger.Info("data sync completed", "run_id", result.TaskID, "duration", result.Duration())
	} else {
		level := slog.LevelError
		if errors.Is(result.Err(), context.Canceled) {
			level = slog.LevelInfo
		}
		s.logger.Log(context.Background(), level, "data sync ended", "run_id", result.TaskID, "reason", result.Reason)
	}
	s.logger.Info("service stopped itself")
}

// Wait blocks until the current run, if any, has finished.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	runner := s.runner
	s.mu.Unlock()

	if runner == nil {
		return nil
	}
	select {
	case <-runner.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the service.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.state, Runs: s.runs, LastResult: s.lastResult}
	if s.runID != uuid.Nil {
		id := s.runID
		st.RunID = &id
	}
	return st
}

// Destroy cancels any in-flight run immediately. Later calls to Start fail
// with domain.ErrServiceStopped.
func (s *Service) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.runner != nil {
		s.runner.Cancel()
	}
	s.state = domain.ServiceStopped
	s.logger.Info("service destroyed")
}

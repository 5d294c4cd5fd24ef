package datasync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/task"
)

// WorkPayload optionally overrides the configured step count for one
// deferred sync.
type WorkPayload struct {
	Steps int `json:"steps,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// Worker performs the deferred sync body.
type Worker struct {
	cfg    config.SyncConfig
	logger *slog.Logger
}

// NewWorker creates a Worker
func NewWorker(cfg config.SyncConfig, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		logger: logger.With("component", "data_sync_worker"),
	}
}

// Sync runs steps simulated steps; zero uses the configured count.
func (w *Worker) Sync(ctx context.Context, steps int) ([]byte, error) {
	if steps <= 0 {
		steps = w.cfg.Steps
	}

	w.logger.Info("starting data sync", "steps", steps)
	out, err := runSteps(ctx, w.logger, steps, w.cfg.StepDelay)
	if err != nil {
		w.logger.Error("data sync failed", "error", err)
		return nil, err
	}
	w.logger.Info("data sync completed")
	return out, nil
}

// WorkerTaskFactory builds deferred sync tasks from task request events.
type WorkerTaskFactory struct {
	worker   *Worker
	validate *validator.Validate
}

// NewWorkerTaskFactory creates a factory for task.TaskTypeDataSync events.
func NewWorkerTaskFactory(worker *Worker) *WorkerTaskFactory {
	return &WorkerTaskFactory{
		worker:   worker,
		validate: validator.New(),
	}
}

// CreateTask implements task.TaskFactory.
func (f *WorkerTaskFactory) CreateTask(id uuid.UUID, payload json.RawMessage) (task.Task, error) {
	var p WorkPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: invalid sync payload: %v", domain.ErrValidation, err)
		}
	}
	if err := f.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return task.NewFuncTaskWithID(id, task.TaskTypeDataSync, payload, func(ctx context.Context) ([]byte, error) {
		return f.worker.Sync(ctx, p.Steps)
	}), nil
}

var _ task.TaskFactory = (*WorkerTaskFactory)(nil)

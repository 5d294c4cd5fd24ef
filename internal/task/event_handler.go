package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/events"
)

// TaskFactory builds the task requested by an event. The task must use id
// as its identity so the emitter can follow it.
type TaskFactory interface {
	CreateTask(id uuid.UUID, payload json.RawMessage) (Task, error)
}

// Submitter accepts tasks with preconditions.
type Submitter interface {
	Submit(ctx context.Context, task Task, constraints Constraints) (*Work, error)
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to handle task request events and delegate them to the appropriate task factory.
type TaskFactoryEventHandler struct {
	submitter Submitter
	logger    *slog.Logger

	mu        sync.RWMutex
	factories map[string]TaskFactory
}

// NewTaskFactoryEventHandler creates a new event handler that builds tasks
// with registered factories and submits them to submitter.
func NewTaskFactoryEventHandler(submitter Submitter, logger *slog.Logger) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		submitter: submitter,
		logger:    logger.With("component", "task_factory_event_handler"),
		factories: make(map[string]TaskFactory),
	}
}

// RegisterFactory routes events of taskType to factory.
func (h *TaskFactoryEventHandler) RegisterFactory(taskType string, factory TaskFactory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[taskType] = factory
}

// HandleEvent processes events by creating and submitting tasks.
// Events whose type has no registered factory are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	h.mu.RLock()
	factory, ok := h.factories[event.Type]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	constraints := make(Constraints, 0, len(event.Conditions))
	for _, name := range event.Conditions {
		cond, err := ParseCondition(name)
		if err != nil {
			h.logger.Error("invalid condition", "error", err, "event_id", event.ID)
			return fmt.Errorf("invalid condition: %w", err)
		}
		constraints = append(constraints, cond)
	}

	h.logger.Debug("creating task for event", "event_id", event.ID, "event_type", event.Type)
	task, err := factory.CreateTask(event.ID, event.Payload)
	if err != nil {
		h.logger.Error("failed to create task", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if _, err := h.submitter.Submit(ctx, task, constraints); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"constraints", constraints,
		"event_id", event.ID)
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/events"
	"github.com/otis-tran/demo-service/internal/platform/logger"
	"github.com/otis-tran/demo-service/internal/service/datasync"
	"github.com/otis-tran/demo-service/internal/task"
)

// WorkTracker exposes submitted deferred work.
type WorkTracker interface {
	Lookup(id uuid.UUID) (*task.Work, bool)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// TaskRecordReader reads persisted task bookkeeping.
type TaskRecordReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (*task.TaskRecord, error)
}

// CreateWorkRequest requests a deferred data sync.
type CreateWorkRequest struct {
	Steps int `json:"steps,omitempty" validate:"omitempty,gte=1,lte=100"`
	// RequireNetwork defaults to true
	RequireNetwork *bool `json:"require_network,omitempty"`
}

// CreateWorkResponse is returned when deferred work is accepted.
type CreateWorkResponse struct {
	TaskID uuid.UUID       `json:"task_id"`
	Status task.TaskStatus `json:"status"`
}

// WorkResponse describes deferred work. Result is set once the work is
// terminal; ErrorMessage is set for records from a previous process.
type WorkResponse struct {
	TaskID       uuid.UUID        `json:"task_id"`
	Type         string           `json:"type"`
	Status       task.TaskStatus  `json:"status"`
	Constraints  task.Constraints `json:"constraints,omitempty"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Result       *task.TaskResult `json:"result,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// WorkHandler handles the deferred work endpoints
type WorkHandler struct {
	emitter events.EventEmitter
	tracker WorkTracker
	records TaskRecordReader
}

// NewWorkHandler creates a new WorkHandler
func NewWorkHandler(emitter events.EventEmitter, tracker WorkTracker, records TaskRecordReader) *WorkHandler {
	return &WorkHandler{
		emitter: emitter,
		tracker: tracker,
		records: records,
	}
}

// CreateWork handles POST /api/work. The sync is submitted through a task
// request event and gated on network connectivity unless the request opts
// out.
func (h *WorkHandler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	var conditions []string
	if req.RequireNetwork == nil || *req.RequireNetwork {
		conditions = append(conditions, string(task.ConditionNetworkConnected))
	}

	var payload interface{}
	if req.Steps > 0 {
		payload = datasync.WorkPayload{Steps: req.Steps}
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeDataSync, payload, conditions...)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to create work request", err)
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	status := task.TaskStatusPending
	if work, ok := h.tracker.Lookup(event.ID); ok {
		status = work.Status()
	}

	logger.FromContext(r.Context()).Info("deferred work accepted", "task_id", event.ID, "conditions", conditions)
	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateWorkResponse{
		TaskID: event.ID,
		Status: status,
	})
}

// GetWork handles GET /api/work/{id}
func (h *WorkHandler) GetWork(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	if work, ok := h.tracker.Lookup(id); ok {
		resp := WorkResponse{
			TaskID:      work.ID(),
			Type:        work.Type(),
			Status:      work.Status(),
			Constraints: work.Constraints(),
			SubmittedAt: work.SubmittedAt(),
		}
		if result, done := work.Outcome(); done {
			resp.Result = &result
		}
		shared.RespondWithJSON(w, r, http.StatusOK, resp)
		return
	}

	rec, err := h.records.GetTask(r.Context(), id)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, WorkResponse{
		TaskID:       rec.ID,
		Type:         rec.Type,
		Status:       rec.Status,
		SubmittedAt:  rec.CreatedAt,
		ErrorMessage: rec.ErrorMessage,
	})
}

// CancelWork handles DELETE /api/work/{id}. Only work still pending on its
// conditions can be cancelled; queued or running work yields 409.
func (h *WorkHandler) CancelWork(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	if err := h.tracker.Cancel(r.Context(), id); err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

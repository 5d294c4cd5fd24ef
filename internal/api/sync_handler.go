package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/service/datasync"
)

// SyncService is the fire-and-forget data sync service.
type SyncService interface {
	Start(ctx context.Context) (uuid.UUID, bool, error)
	Status() datasync.Status
}

// StartSyncResponse is returned when a sync is requested.
type StartSyncResponse struct {
	RunID   uuid.UUID `json:"run_id"`
	Started bool      `json:"started"`
}

// SyncHandler handles the fire-and-forget sync endpoints
type SyncHandler struct {
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// StartSync handles POST /api/sync. It returns immediately with 202.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	runID, started, err := h.service.Start(r.Context())
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartSyncResponse{
		RunID:   runID,
		Started: started,
	})
}

// GetSync handles GET /api/sync
func (h *SyncHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.service.Status())
}

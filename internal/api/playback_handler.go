package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/platform/logger"
	"github.com/otis-tran/demo-service/internal/service/playback"
)

// PlaybackController is the foreground playback service.
type PlaybackController interface {
	Handle(ctx context.Context, cmd playback.Command) (playback.Snapshot, error)
	Snapshot() playback.Snapshot
}

// PlaybackHandler handles the playback endpoints
type PlaybackHandler struct {
	controller PlaybackController
}

// NewPlaybackHandler creates a new PlaybackHandler
func NewPlaybackHandler(controller PlaybackController) *PlaybackHandler {
	return &PlaybackHandler{controller: controller}
}

// Command handles POST /api/playback and POST /api/playback/{command}.
// A missing or unrecognised command starts playback.
func (h *PlaybackHandler) Command(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "command")
	cmd := playback.ParseCommand(raw)
	logger.FromContext(r.Context()).Debug("playback command", "raw", raw, "command", cmd)

	snap, err := h.controller.Handle(r.Context(), cmd)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}

// GetPlayback handles GET /api/playback
func (h *PlaybackHandler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.controller.Snapshot())
}

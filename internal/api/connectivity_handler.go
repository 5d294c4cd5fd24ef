package api

import (
	"net/http"

	"github.com/otis-tran/demo-service/internal/api/shared"
)

// ConnectivityController holds the host's connectivity signal.
type ConnectivityController interface {
	Set(connected bool) bool
	Connected() bool
}

// SetConnectivityRequest sets connectivity manually.
type SetConnectivityRequest struct {
	Connected *bool `json:"connected" validate:"required"`
}

// ConnectivityResponse reports the connectivity state.
type ConnectivityResponse struct {
	Connected bool `json:"connected"`
	Changed   bool `json:"changed"`
}

// ConnectivityHandler handles the connectivity endpoints
type ConnectivityHandler struct {
	controller ConnectivityController
}

// NewConnectivityHandler creates a new ConnectivityHandler
func NewConnectivityHandler(controller ConnectivityController) *ConnectivityHandler {
	return &ConnectivityHandler{controller: controller}
}

// SetConnectivity handles PUT /api/connectivity
func (h *ConnectivityHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req SetConnectivityRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	changed := h.controller.Set(*req.Connected)
	shared.RespondWithJSON(w, r, http.StatusOK, ConnectivityResponse{
		Connected: h.controller.Connected(),
		Changed:   changed,
	})
}

// GetConnectivity handles GET /api/connectivity
func (h *ConnectivityHandler) GetConnectivity(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ConnectivityResponse{
		Connected: h.controller.Connected(),
	})
}

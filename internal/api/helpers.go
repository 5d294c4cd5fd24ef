package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/domain"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrValidation, paramName)
	}
	return id, nil
}

// decodeAndValidate decodes the JSON body into v and validates it. An empty
// body is accepted when allowEmpty is set. On failure it writes a 400 and
// returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			respondError(w, r, http.StatusBadRequest, "Invalid request format", err)
			return false
		}
	}

	if err := shared.ValidateRequest(v); err != nil {
		respondError(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// respondError writes a sanitized error response and logs err.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

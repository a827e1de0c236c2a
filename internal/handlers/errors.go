package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kidtasks/internal/engine"
	"kidtasks/internal/service"
	"kidtasks/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, slog.Int("status", status), slog.Any("error", err))
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps decoding, validation and engine errors to a status
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPayload), errors.Is(err, service.ErrUnknownAction), validation.IsValidationError(err):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, engine.ErrNotFound):
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
	case errors.Is(err, engine.ErrClockUnavailable), errors.Is(err, engine.ErrPersistenceUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, ErrServiceUnavailable, logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
	}
}

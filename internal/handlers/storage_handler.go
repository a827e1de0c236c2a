package handlers

import (
	"log/slog"
	"net/http"

	"kidtasks/internal/service"
)

// StorageHandler serves the board snapshot and executes board commands
type StorageHandler struct {
	board  *service.BoardService
	logger *slog.Logger
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(board *service.BoardService, logger *slog.Logger) *StorageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageHandler{board: board, logger: logger}
}

// GetBoard handles GET /api/storage. It never resets tasks.
func (h *StorageHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.board.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, "failed to load board", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PostCommand handles POST /api/storage with an {"action", "payload"} body
func (h *StorageHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := service.DecodeCommand(http.MaxBytesReader(w, r.Body, maxCommandBodyBytes))
	if err != nil {
		respondWithServiceError(w, "", err)
		return
	}

	out, err := h.board.Execute(r.Context(), cmd)
	if err != nil {
		respondWithServiceError(w, "failed to execute "+cmd.Action(), err)
		return
	}

	h.logger.Debug("command executed", slog.String("action", cmd.Action()))
	writeJSON(w, http.StatusOK, out)
}

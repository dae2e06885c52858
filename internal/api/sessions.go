package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mlbb-ai/coach/internal/conversation"
)

// sessionDeleter is implemented by stores that support removing a session.
type sessionDeleter interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// turnPayload is one conversation turn on the wire.
type turnPayload struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Citations []string  `json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionHandler struct {
	store  conversation.Store
	logger *slog.Logger
}

// getTurns handles GET /api/sessions/{id}/turns.
func (h *sessionHandler) getTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session id is required", h.logger)
		return
	}

	turns, err := h.store.LoadTurns(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("loading session turns", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "store_failure",
			"failed to load conversation", h.logger)
		return
	}

	payload := make([]turnPayload, len(turns))
	for i, t := range turns {
		payload[i] = turnPayload{
			Role:      t.Role,
			Content:   t.Content,
			Citations: t.Citations,
			CreatedAt: t.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      payload,
	}, h.logger)
}

// deleteSession handles DELETE /api/sessions/{id}. Stores without deletion
// support answer 501.
func (h *sessionHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session id is required", h.logger)
		return
	}

	deleter, ok := h.store.(sessionDeleter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "not_supported",
			"this store does not support session deletion", h.logger)
		return
	}

	if err := deleter.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("deleting session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "store_failure",
			"failed to delete session", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": sessionID}, h.logger)
}

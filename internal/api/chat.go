package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mlbb-ai/coach/internal/coach"
	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/llm"
)

// maxChatBody caps the request body; coaching questions are short.
const maxChatBody = 64 << 10 // 64 KiB

// chatRequest is the POST /api/chat payload.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// chatResponse mirrors coach.Result on the wire.
type chatResponse struct {
	Answer      string   `json:"answer"`
	SessionID   string   `json:"session_id"`
	Intent      string   `json:"intent"`
	Suggestions []string `json:"suggestions"`
	Sources     []string `json:"sources,omitempty"`
	Grounded    bool     `json:"grounded"`
}

type chatHandler struct {
	engine Invoker
	logger *slog.Logger
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", h.logger)
		return
	}

	res, err := h.engine.Invoke(r.Context(), coach.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		Provider:  req.Provider,
	})
	if err != nil {
		h.writeInvokeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:      res.Answer,
		SessionID:   res.SessionID,
		Intent:      string(res.Intent),
		Suggestions: res.Suggestions,
		Sources:     res.PassagesUsed,
		Grounded:    res.Grounded,
	}, h.logger)
}

// writeInvokeError maps the engine's error taxonomy to HTTP statuses.
func (h *chatHandler) writeInvokeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.logger.With("request_id", requestIDFromContext(r.Context()))

	switch {
	case errors.Is(err, coach.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), logger)
	case errors.Is(err, llm.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "provider_unavailable", err.Error(), logger)
	case errors.Is(err, llm.ErrGenerationFailed):
		logger.Error("generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "generation_failed",
			"the model backend failed to produce a reply", logger)
	case errors.Is(err, conversation.ErrStoreFailure):
		logger.Error("store failure", "error", err)
		writeError(w, http.StatusInternalServerError, "store_failure",
			"failed to persist the conversation", logger)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "the request timed out", logger)
	default:
		logger.Error("invocation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error",
			"internal server error", logger)
	}
}

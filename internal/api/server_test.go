package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlbb-ai/coach/internal/coach"
	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/llm"
	"github.com/mlbb-ai/coach/internal/log"
)

// fakeEngine scripts Invoke for handler tests.
type fakeEngine struct {
	result *coach.Result
	err    error
	last   coach.Request
}

func (f *fakeEngine) Invoke(_ context.Context, req coach.Request) (*coach.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	if res.SessionID == "" {
		res.SessionID = req.SessionID
	}
	return &res, nil
}

func newTestServer(t *testing.T, engine Invoker, store conversation.Store) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if store == nil {
		store = conversation.NewMemoryStore(0, log.NewNop())
	}
	srv, err := NewServer(ctx, ServerConfig{
		Logger: log.NewNop(),
		Engine: engine,
		Store:  store,
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(context.Background(), ServerConfig{Store: conversation.NewMemoryStore(0, log.NewNop())})
	assert.Error(t, err, "engine is required")

	_, err = NewServer(context.Background(), ServerConfig{Engine: &fakeEngine{}})
	assert.Error(t, err, "store is required")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadinessWithoutPool(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "memory", body["storage"])
}

func TestChatSuccess(t *testing.T) {
	engine := &fakeEngine{result: &coach.Result{
		Answer:       "Layla is a marksman.",
		Intent:       intent.SubjectInfo,
		Suggestions:  []string{"What's the best build for this hero?"},
		PassagesUsed: []string{"heroes/layla-1"},
		Grounded:     true,
	}}
	srv := newTestServer(t, engine, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{
		Message:   "Tell me about Layla",
		SessionID: "s1",
		Provider:  "googleai",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Layla is a marksman.", body.Answer)
	assert.Equal(t, "s1", body.SessionID)
	assert.Equal(t, "subject_info", body.Intent)
	assert.True(t, body.Grounded)
	assert.Equal(t, []string{"heroes/layla-1"}, body.Sources)

	assert.Equal(t, "googleai", engine.last.Provider, "provider hint passes through")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestChatBadJSON(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid input",
			err:        fmt.Errorf("%w: message is empty", coach.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name:       "provider unavailable",
			err:        fmt.Errorf("resolving provider: %w: %q", llm.ErrProviderUnavailable, "openai"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "provider_unavailable",
		},
		{
			name:       "generation failed",
			err:        fmt.Errorf("generating reply: %w: boom", llm.ErrGenerationFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   "generation_failed",
		},
		{
			name:       "store failure",
			err:        fmt.Errorf("committing turns: %w: disk full", conversation.ErrStoreFailure),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "store_failure",
		},
		{
			name:       "timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeEngine{err: tt.err}, nil)

			rec := doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "x"})
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
		})
	}
}

func TestSessionTurnsRoundTrip(t *testing.T) {
	store := conversation.NewMemoryStore(0, log.NewNop())
	require.NoError(t, store.AppendPair(context.Background(), "s1",
		conversation.NewUserTurn("hi"),
		conversation.NewAssistantTurn("hello!", []string{"tactics/basics"})))

	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, store)

	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/s1/turns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SessionID string        `json:"session_id"`
		Turns     []turnPayload `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Turns, 2)
	assert.Equal(t, conversation.RoleUser, body.Turns[0].Role)
	assert.Equal(t, []string{"tactics/basics"}, body.Turns[1].Citations)
}

func TestSessionDelete(t *testing.T) {
	store := conversation.NewMemoryStore(0, log.NewNop())
	require.NoError(t, store.AppendPair(context.Background(), "s1",
		conversation.NewUserTurn("hi"), conversation.NewAssistantTurn("hello!", nil)))

	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, store)

	rec := doJSON(t, srv, http.MethodDelete, "/api/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	turns, err := store.LoadTurns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{result: &coach.Result{}}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/chat", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicky)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newRateLimiter(ctx, 0.001, 2)
	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"), "burst exhausted")
	assert.True(t, rl.allow("5.6.7.8"), "budgets are per IP")
}

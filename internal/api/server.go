// Package api exposes the coaching engine over HTTP as a small JSON API.
//
// Routes are registered on a net/http ServeMux with method patterns; the
// middleware chain (outermost first) is Recovery → RequestID → Logging →
// RateLimit → Routes. Health probes sit outside the chain so orchestrators
// are never rate limited.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlbb-ai/coach/internal/coach"
	"github.com/mlbb-ai/coach/internal/conversation"
)

// Invoker is the slice of the engine the API depends on.
type Invoker interface {
	Invoke(ctx context.Context, req coach.Request) (*coach.Result, error)
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Engine    Invoker            // required
	Store     conversation.Store // required: session read endpoints
	Pool      *pgxpool.Pool      // optional: nil reports degraded readiness
	RateBurst int                // per-IP burst (0 = default 30)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a server with all routes configured. ctx bounds the
// rate limiter's cleanup goroutine.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{engine: cfg.Engine, logger: logger}
	sh := &sessionHandler{store: cfg.Store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /api/sessions/{id}/turns", sh.getTurns)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.deleteSession)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(ctx, 1.0, burst)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

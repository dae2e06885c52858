// Package app assembles the application: configuration, logging, Genkit,
// storage, the provider registry, and the coaching engine.
//
// Setup builds everything top to bottom and returns an App whose Close
// releases resources in reverse order. Commands depend on App instead of
// wiring collaborators themselves.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlbb-ai/coach/internal/coach"
	"github.com/mlbb-ai/coach/internal/config"
	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/knowledge"
	"github.com/mlbb-ai/coach/internal/llm"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	// Pool is nil when no database is configured; the app then runs with
	// in-memory conversations and no knowledge retrieval.
	Pool      *pgxpool.Pool
	Knowledge *knowledge.Store

	Registry *llm.Registry
	Store    conversation.Store
	Engine   *coach.Engine

	otelShutdown func()
}

// Close releases resources in reverse initialization order.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	if a.otelShutdown != nil {
		a.otelShutdown()
	}
	return nil
}

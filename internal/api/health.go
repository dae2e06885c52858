package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// health is the liveness probe.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, slog.Default())
}

// readiness reports whether the server can do useful work. With a pool it
// pings the database; without one it reports degraded (memory-only mode)
// but still returns 200, since the engine works without persistence.
func readiness(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default()

		if pool == nil {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "degraded",
				"storage": "memory",
			}, logger)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unreachable",
			}, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": "postgres",
		}, logger)
	})
}

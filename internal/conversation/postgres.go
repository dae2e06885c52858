package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations in PostgreSQL.
//
// Per-session serialization: AppendPair locks the session row FOR UPDATE
// inside a transaction, so concurrent appends to the same session queue on
// the row lock and their pairs land contiguously. Appends to different
// sessions proceed in parallel.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore. logger may be nil.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// LoadTurns returns the retained history for sessionID in append order.
// Unknown sessions return an empty slice.
func (s *PostgresStore) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, content, citations, metadata, created_at
		FROM turns
		WHERE session_id = $1
		ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading turns for %s: %w", ErrStoreFailure, sessionID, err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t             Turn
			citationsJSON []byte
			metadataJSON  []byte
		)
		if err := rows.Scan(&t.Role, &t.Content, &citationsJSON, &metadataJSON, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning turn: %w", ErrStoreFailure, err)
		}
		if len(citationsJSON) > 0 {
			if err := json.Unmarshal(citationsJSON, &t.Citations); err != nil {
				return nil, fmt.Errorf("%w: decoding citations: %w", ErrStoreFailure, err)
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decoding metadata: %w", ErrStoreFailure, err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating turns: %w", ErrStoreFailure, err)
	}
	return turns, nil
}

// AppendPair persists the exchange atomically: the session row is created on
// first use, locked for the duration of the transaction, and both turns are
// inserted with consecutive sequence numbers. On any failure the transaction
// rolls back and neither turn is stored.
func (s *PostgresStore) AppendPair(ctx context.Context, sessionID string, user, assistant Turn) error {
	if err := validatePair(user, assistant); err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", ErrStoreFailure, err)
	}
	defer func() {
		// No-op when the transaction committed.
		_ = tx.Rollback(ctx)
	}()

	// Create the session implicitly, then take the per-session lock.
	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING`,
		sessionID); err != nil {
		return fmt.Errorf("%w: ensuring session %s: %w", ErrStoreFailure, sessionID, err)
	}
	if _, err := tx.Exec(ctx, `
		SELECT id FROM sessions WHERE id = $1 FOR UPDATE`,
		sessionID); err != nil {
		return fmt.Errorf("%w: locking session %s: %w", ErrStoreFailure, sessionID, err)
	}

	var maxSeq int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = $1`,
		sessionID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("%w: reading sequence for %s: %w", ErrStoreFailure, sessionID, err)
	}

	if err := s.insertTurn(ctx, tx, sessionID, maxSeq+1, user); err != nil {
		return err
	}
	if err := s.insertTurn(ctx, tx, sessionID, maxSeq+2, assistant); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET updated_at = now() WHERE id = $1`,
		sessionID); err != nil {
		return fmt.Errorf("%w: touching session %s: %w", ErrStoreFailure, sessionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing pair for %s: %w", ErrStoreFailure, sessionID, err)
	}

	s.logger.Debug("appended turn pair", "session_id", sessionID, "seq", maxSeq+2)
	return nil
}

// insertTurn writes one turn row inside the append transaction.
func (s *PostgresStore) insertTurn(ctx context.Context, tx pgx.Tx, sessionID string, seq int, t Turn) error {
	citationsJSON, err := json.Marshal(t.Citations)
	if err != nil {
		return fmt.Errorf("%w: encoding citations: %w", ErrStoreFailure, err)
	}
	metadataJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("%w: encoding metadata: %w", ErrStoreFailure, err)
	}

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		return fmt.Errorf("%w: turn has no timestamp", ErrStoreFailure)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO turns (id, session_id, seq, role, content, citations, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), sessionID, seq, t.Role, t.Content, citationsJSON, metadataJSON, createdAt); err != nil {
		return fmt.Errorf("%w: inserting %s turn: %w", ErrStoreFailure, t.Role, err)
	}
	return nil
}

// DeleteSession removes a session; its turns cascade with the foreign key.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("%w: deleting session %s: %w", ErrStoreFailure, sessionID, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

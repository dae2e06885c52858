package conversation

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests, and as
// the fallback when no database is configured. Retention is bounded per
// session: once a session exceeds the cap, oldest turns are dropped in pairs
// so history always starts on a user turn.
//
// A per-session mutex serializes appends within a session while leaving
// cross-session operations fully concurrent.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	retain   int // max turns kept per session, 0 = unlimited
	logger   *slog.Logger
}

type memorySession struct {
	mu    sync.Mutex
	turns []Turn
}

// NewMemoryStore creates a MemoryStore retaining at most retain turns per
// session (0 = unlimited). logger may be nil.
func NewMemoryStore(retain int, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		retain:   retain,
		logger:   logger,
	}
}

// LoadTurns returns a copy of the retained history for sessionID.
func (s *MemoryStore) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	sess := s.sessions[sessionID]
	s.mu.RUnlock()
	if sess == nil {
		return []Turn{}, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// AppendPair appends a user/assistant exchange atomically. The session is
// created implicitly on first append.
func (s *MemoryStore) AppendPair(ctx context.Context, sessionID string, user, assistant Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePair(user, assistant); err != nil {
		return err
	}

	sess := s.session(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.turns = append(sess.turns, user, assistant)

	// Evict oldest pairs beyond the retention cap.
	if s.retain > 0 && len(sess.turns) > s.retain {
		drop := len(sess.turns) - s.retain
		if drop%2 != 0 {
			drop++ // keep pairs intact
		}
		if drop >= len(sess.turns) {
			drop = len(sess.turns) - 2
		}
		if drop > 0 {
			sess.turns = append([]Turn(nil), sess.turns[drop:]...)
			s.logger.Debug("evicted turns", "session_id", sessionID, "dropped", drop)
		}
	}
	return nil
}

// DeleteSession removes a session and its history entirely.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sessions returns the ids of all sessions with retained history.
func (s *MemoryStore) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// session returns the per-session state, creating it if needed.
func (s *MemoryStore) session(sessionID string) *memorySession {
	s.mu.RLock()
	sess := s.sessions[sessionID]
	s.mu.RUnlock()
	if sess != nil {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess = s.sessions[sessionID]; sess == nil {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	return sess
}

var _ Store = (*MemoryStore)(nil)

package conversation

import (
	"context"
	"errors"
)

// Sentinel errors for store operations. Check with errors.Is.
var (
	// ErrStoreFailure indicates an append or load could not be completed.
	// An un-persisted exchange silently loses history, so callers must treat
	// this as a hard failure.
	ErrStoreFailure = errors.New("conversation store failure")

	// ErrInvalidPair indicates the turns given to AppendPair do not form a
	// user/assistant pair.
	ErrInvalidPair = errors.New("append requires a user turn followed by an assistant turn")
)

// Store is the durable conversation log.
//
// LoadTurns returns the full retained history for a session in append order;
// a session that has never been written returns an empty slice, not an
// error. AppendPair persists a user/assistant exchange atomically: either
// both turns are stored or neither is, and pairs from concurrent appends to
// the same session never interleave.
type Store interface {
	LoadTurns(ctx context.Context, sessionID string) ([]Turn, error)
	AppendPair(ctx context.Context, sessionID string, user, assistant Turn) error
}

// validatePair enforces the user-then-assistant shape shared by all store
// implementations.
func validatePair(user, assistant Turn) error {
	if user.Role != RoleUser || assistant.Role != RoleAssistant {
		return ErrInvalidPair
	}
	return nil
}

// Package conversation provides the append-only conversation log.
//
// A conversation is an ordered sequence of immutable Turns keyed by an
// opaque session id. Turns are appended strictly in pairs (user message +
// assistant reply) and never rewritten; eviction is owned by the store, not
// by callers.
//
// Concurrency contract: stores are safe for concurrent use across sessions
// and serialize appends within a session, so two racing invocations can
// never interleave their turn pairs.
package conversation

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Immutable once appended.
type Turn struct {
	Role      string            // RoleUser or RoleAssistant
	Content   string            // message text
	Citations []string          // ids of passages cited by an assistant turn
	Metadata  map[string]string // optional attribution (e.g. resolved intent)
	CreatedAt time.Time
}

// NewUserTurn builds a user Turn stamped with the current time.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now()}
}

// NewAssistantTurn builds an assistant Turn with its citations.
func NewAssistantTurn(content string, citations []string) Turn {
	return Turn{
		Role:      RoleAssistant,
		Content:   content,
		Citations: citations,
		CreatedAt: time.Now(),
	}
}

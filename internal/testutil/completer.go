// Package testutil provides shared test doubles and infrastructure:
// a scriptable model provider, a canned retriever, a deterministic
// embedder, and a PostgreSQL test container helper.
package testutil

import (
	"context"
	"strings"
	"sync"
)

// CompleterCall records one Complete invocation.
type CompleterCall struct {
	Prompt    string
	MaxTokens int
}

// MockCompleter is a scriptable llm.Provider. Prompts are matched against
// registered substrings (first match wins, case-insensitive); unmatched
// prompts get the fallback reply.
//
// Safe for concurrent use.
type MockCompleter struct {
	mu          sync.Mutex
	rules       []completerRule
	fallback    string
	err         error
	calls       []CompleterCall
	name        string
	unavailable bool
}

type completerRule struct {
	pattern string
	reply   string
}

// NewMockCompleter creates a provider named name with a fallback reply.
func NewMockCompleter(name, fallback string) *MockCompleter {
	return &MockCompleter{name: name, fallback: fallback}
}

// AddReply registers a pattern-reply pair, checked in registration order.
func (m *MockCompleter) AddReply(pattern, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, completerRule{pattern: strings.ToLower(pattern), reply: reply})
}

// FailWith makes every Complete call return err until reset with nil.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetUnavailable controls the Available report.
func (m *MockCompleter) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

// Calls returns a copy of all recorded calls.
func (m *MockCompleter) Calls() []CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleterCall(nil), m.calls...)
}

// Name implements llm.Provider.
func (m *MockCompleter) Name() string { return m.name }

// Available implements llm.Provider.
func (m *MockCompleter) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CompleterCall{Prompt: prompt, MaxTokens: maxTokens})

	if m.err != nil {
		return "", m.err
	}
	lower := strings.ToLower(prompt)
	for _, r := range m.rules {
		if strings.Contains(lower, r.pattern) {
			return r.reply, nil
		}
	}
	return m.fallback, nil
}

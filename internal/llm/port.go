// Package llm is the language-model port: a capability seam between the
// coaching engine and interchangeable text-completion backends.
//
// The engine depends only on Completer and Registry. Concrete providers are
// registered by name and selected at invocation time; a provider hint that
// names an unavailable backend fails fast rather than silently substituting
// another provider, since substitution would make costs and behavior
// unpredictable for the caller.
//
// Resilience (bounded retry, circuit breaker, rate limiting) lives inside
// the adapters; the engine itself never retries.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to the engine. Check with errors.Is.
var (
	// ErrProviderUnavailable indicates the requested or default provider has
	// no valid credentials or configuration. Non-retryable until the
	// operator configures the backend.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrGenerationFailed indicates the backend call errored or exceeded its
	// hard timeout. Callers may retry with backoff; the engine does not.
	ErrGenerationFailed = errors.New("generation failed")
)

// Completer produces a text completion for a prompt within a token budget.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Provider is a named, selectable Completer.
type Provider interface {
	Completer

	// Name is the registry key ("googleai", "ollama", ...).
	Name() string

	// Available reports whether the backend is configured well enough to
	// attempt a call (credentials present, host reachable by configuration).
	Available() bool
}

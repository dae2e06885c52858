package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named providers and resolves hints to a concrete backend.
// Selection is a lookup, never a conditional chain: adding a provider means
// registering it, not editing the engine.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates an empty registry with the given default provider
// name. The default does not need to be registered yet.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
	}
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Resolve returns the provider for hint, or the default provider when hint
// is empty. It fails with ErrProviderUnavailable when the named provider is
// unregistered or reports itself unavailable; the error lists the providers
// that are currently usable so the caller can prompt for configuration.
func (r *Registry) Resolve(hint string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := hint
	if name == "" {
		name = r.defaultName
	}

	p, ok := r.providers[name]
	if !ok || !p.Available() {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrProviderUnavailable, name, r.availableLocked())
	}
	return p, nil
}

// Available returns the names of providers that are currently usable,
// sorted for stable output.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, p := range r.providers {
		if p.Available() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// availableLocked renders the available set for error messages.
// Caller holds at least the read lock.
func (r *Registry) availableLocked() string {
	var names []string
	for name, p := range r.providers {
		if p.Available() {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

package providers

import (
	"fmt"
	"strings"
	"sync"
)

// PreferenceAuto selects every configured provider in priority order.
const PreferenceAuto = "auto"

// DefaultPriority is the fallback order used in automatic mode.
var DefaultPriority = []string{NameGroq, NameOpenAI, NameGemini}

// Registry holds configured providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	priority  []string
}

// NewRegistry creates a registry. An empty priority uses DefaultPriority.
func NewRegistry(priority ...string) *Registry {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	return &Registry{
		providers: make(map[string]Provider),
		priority:  priority,
	}
}

// Register adds or replaces a provider under its Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// List returns registered providers in priority order.
// Providers missing from the priority list are not returned.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, name := range r.priority {
		if p, ok := r.providers[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Len reports how many providers are available for automatic mode.
func (r *Registry) Len() int {
	return len(r.List())
}

// Candidates resolves a preference to the ordered list of providers to try.
// "" and "auto" mean every configured provider; a name means exactly that one.
func (r *Registry) Candidates(pref string) ([]Provider, error) {
	pref = strings.ToLower(strings.TrimSpace(pref))
	if pref == "" || pref == PreferenceAuto {
		list := r.List()
		if len(list) == 0 {
			return nil, ErrNotConfigured
		}
		return list, nil
	}
	p, ok := r.Get(pref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, pref)
	}
	return []Provider{p}, nil
}

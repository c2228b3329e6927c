package ai

import (
	"fmt"
	"strings"
	"sync"
)

// Backend bundles the generation and embedding halves of one provider.
type Backend struct {
	Provider Provider
	Embedder Embedder
}

type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

func (r *Registry) Register(name string, b Backend) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
}

func (r *Registry) Get(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	b, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown ai provider: %s", name)
	}
	return b, nil
}

package generation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anomshot/anomshot/internal/config"
)

var (
	// ErrFactoryNotFound indicates no factory is registered for the
	// provider type.
	ErrFactoryNotFound = errors.New("provider factory not found")

	// ErrInvalidClient indicates the client implementation is invalid.
	ErrInvalidClient = errors.New("invalid client")
)

// Factory creates a Client from a resolved provider configuration.
type Factory func(cfg config.Provider) (Client, error)

// Registry maps provider types to their factories. Factories register at
// import time; clients are built at startup from the configuration. Safe
// for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterFactory registers a factory for a provider type. Registering the
// same type twice overwrites the previous factory.
func (r *Registry) RegisterFactory(providerType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
}

// New builds a Client for the given provider configuration.
func (r *Registry) New(cfg config.Provider) (Client, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (known types: %s)", ErrFactoryNotFound, cfg.Type, joinSorted(r.Types()))
	}

	client, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", cfg.Type, err)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: factory for %s returned nil", ErrInvalidClient, cfg.Type)
	}
	return client, nil
}

// Types returns all registered provider types, sorted alphabetically.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HasFactory returns true if a factory is registered for the type.
func (r *Registry) HasFactory(providerType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[providerType]
	return ok
}

func joinSorted(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}

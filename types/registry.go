package types

import (
	"reflect"
	"strings"
	"sync"
)

// Registry maps type names and Go types to providers.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Provider
	byType map[reflect.Type]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
		byType: make(map[reflect.Type]Provider),
	}
}

// NewBuiltinRegistry creates a registry holding the built-in types.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, p := range builtins() {
		r.Register(p)
	}
	for alias, name := range builtinAliases {
		p, _ := r.Get(name)
		r.RegisterAlias(alias, p)
	}
	return r
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry of built-in types.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewBuiltinRegistry()
	})
	return defaultRegistry
}

// Register adds a provider under its name. A later registration for the same
// name or Go type replaces the earlier one.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(p.Name())] = p
	r.byType[p.Type()] = p
}

// RegisterAlias makes p reachable under an additional name.
func (r *Registry) RegisterAlias(alias string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(alias)] = p
}

// Get finds a provider by case-insensitive name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[strings.ToLower(name)]
	return p, ok
}

// ForType finds the provider for a Go type.
func (r *Registry) ForType(t reflect.Type) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byType[t]
	return p, ok
}

// Names returns every registered name and alias, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byName)
}

// TypeName returns the registered name for a Go type, or its Go name when
// the type is not registered.
func (r *Registry) TypeName(t reflect.Type) string {
	if p, ok := r.ForType(t); ok {
		return p.Name()
	}
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

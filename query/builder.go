package query

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/xform/data"
)

// Builder constructs one pipeline stage from a script line.
type Builder interface {
	// Verbs are the keywords handled by the builder.
	Verbs() []string
	// Usage describes the arguments for diagnostics.
	Usage() string
	// Build reads the verb arguments from wc.Parser and wraps source, which
	// is nil for the first stage of a pipeline. On error the builder must not
	// close source.
	Build(ctx context.Context, source data.Enumerator, wc *WorkflowContext) (data.Enumerator, error)
}

// Registry maps verb keywords to builders. Lookups are case-insensitive.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds b under each of its verbs. A later builder for the same verb
// replaces the earlier one.
func (r *Registry) Register(b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, verb := range b.Verbs() {
		r.builders[strings.ToLower(verb)] = b
	}
}

// Get finds the builder for a verb.
func (r *Registry) Get(verb string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[strings.ToLower(verb)]
	return b, ok
}

// Verbs returns the registered verbs, sorted.
func (r *Registry) Verbs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	verbs := make([]string, 0, len(r.builders))
	for v := range r.builders {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

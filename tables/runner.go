package tables

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/streams"
)

const (
	queryExt = ".xql"
	tableExt = ".csv"
)

// Runner implements query.TableResolver.
type Runner struct {
	mu      sync.RWMutex
	memory  map[string]memoryTable
	streams streams.Provider
	sqlite  *SQLiteSource
	log     *logger.Logger
}

type memoryTable struct {
	name  string
	table *data.Table
}

// Option configures a Runner.
type Option func(*Runner)

// WithSQLite attaches a SQLite database as a table source.
func WithSQLite(source *SQLiteSource) Option {
	return func(r *Runner) { r.sqlite = source }
}

// WithLogger sets the runner logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a runner reading tables from p.
func NewRunner(p streams.Provider, opts ...Option) *Runner {
	r := &Runner{
		memory:  make(map[string]memoryTable),
		streams: p,
		log:     logger.Get(logger.ComponentTables),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTable registers an in-memory table. It replaces any table of the same name.
func (r *Runner) AddTable(name string, t *data.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory[strings.ToLower(name)] = memoryTable{name: name, table: t}
}

// SourceNames returns every readable table name, sorted.
func (r *Runner) SourceNames() []string {
	seen := map[string]bool{}
	var names []string
	add := func(list ...string) {
		for _, n := range list {
			if key := strings.ToLower(n); !seen[key] {
				seen[key] = true
				names = append(names, n)
			}
		}
	}

	r.mu.RLock()
	for _, m := range r.memory {
		add(m.name)
	}
	r.mu.RUnlock()

	if r.streams != nil {
		for _, folder := range []struct{ dir, ext string }{{streams.QueryFolder, queryExt}, {streams.TableFolder, tableExt}} {
			list, err := r.streams.List(folder.dir, folder.ext)
			if err != nil {
				r.log.WithError(err).Warn("listing tables", logger.Fields(logger.FieldOperation, folder.dir))
				continue
			}
			add(list...)
		}
	}
	if r.sqlite != nil {
		list, err := r.sqlite.Tables(context.Background())
		if err != nil {
			r.log.WithError(err).Warn("listing sqlite tables")
		}
		add(list...)
	}

	sort.Strings(names)
	return names
}

// Build returns an enumerator for the named table.
func (r *Runner) Build(ctx context.Context, name string, wc *query.WorkflowContext) (data.Enumerator, error) {
	r.mu.RLock()
	m, ok := r.memory[strings.ToLower(name)]
	r.mu.RUnlock()
	if ok {
		r.resolved(name, "memory")
		return m.table.Enumerate(), nil
	}

	if r.streams != nil {
		if stream, ok := r.find(streams.QueryFolder, queryExt, name); ok {
			script, err := streams.ReadString(r.streams, stream)
			if err != nil {
				return nil, err
			}
			r.resolved(name, stream)
			return query.BuildPipeline(ctx, script, nil, wc)
		}
		if stream, ok := r.find(streams.TableFolder, tableExt, name); ok {
			r.resolved(name, stream)
			return NewCSVSource(r.streams, stream)
		}
	}

	if r.sqlite != nil {
		if table, ok, err := r.sqlite.find(ctx, name); err != nil {
			return nil, err
		} else if ok {
			r.resolved(name, "sqlite")
			return r.sqlite.Enumerate(ctx, table)
		}
	}
	return nil, errors.NotFound("table", name)
}

// find matches a stream name case-insensitively.
func (r *Runner) find(folder, ext, name string) (string, bool) {
	list, err := r.streams.List(folder, ext)
	if err != nil {
		return "", false
	}
	for _, n := range list {
		if strings.EqualFold(n, name) {
			return path.Join(folder, n+ext), true
		}
	}
	return "", false
}

func (r *Runner) resolved(name, source string) {
	r.log.Debug("table resolved", logger.Fields(logger.FieldTable, name, "source", source))
}

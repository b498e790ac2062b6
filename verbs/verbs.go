// Package verbs holds the built-in pipeline stages.
package verbs

import (
	"sync"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/query"
)

// Register adds every built-in verb to r.
func Register(r *query.Registry) {
	for _, b := range []query.Builder{
		readBuilder{},
		cacheBuilder{},
		columnsBuilder{},
		removeColumnsBuilder{},
		renameColumnsBuilder{},
		limitBuilder{},
		countBuilder{},
		whereBuilder{},
		castBuilder{},
		writeBuilder{},
		schemaBuilder{},
		concatBuilder{},
	} {
		r.Register(b)
	}
}

var (
	defaultRegistry *query.Registry
	defaultOnce     sync.Once
)

// Default returns a registry holding the built-in verbs. It is populated once.
func Default() *query.Registry {
	defaultOnce.Do(func() {
		defaultRegistry = query.NewRegistry()
		Register(defaultRegistry)
	})
	return defaultRegistry
}

func requireSource(verb string, source data.Enumerator) error {
	if source == nil {
		return errors.InvalidInput("source", "'"+verb+"' needs an upstream stage; start the pipeline with 'read'")
	}
	return nil
}

// readColumnNames reads column names of source until the end of the line.
// At least one is required and duplicates are rejected.
func readColumnNames(p *query.Parser, source data.Enumerator) ([]int, error) {
	var indices []int
	seen := map[int]bool{}
	for {
		tok := p.Current()
		name, err := p.NextColumnName(source)
		if err != nil {
			return nil, err
		}
		i, _ := data.IndexOfColumn(source.Columns(), name)
		if seen[i] {
			return nil, p.UsageError(tok.Value, query.CategoryColumnName, unused(source.Columns(), seen))
		}
		seen[i] = true
		indices = append(indices, i)
		if !p.HasAnotherPart() {
			return indices, nil
		}
	}
}

func unused(columns []data.ColumnDetails, seen map[int]bool) []string {
	var names []string
	for i, c := range columns {
		if !seen[i] {
			names = append(names, c.Name)
		}
	}
	return names
}

package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
)

// cache loads every upstream column into memory on the first run and serves
// later runs from the loaded table.
type cache struct {
	data.Wrapper
	table   *data.Table
	current data.Enumerator
}

func (c *cache) ColumnGetter(index int) data.Getter {
	return func() (data.Batch, error) {
		return c.current.ColumnGetter(index)()
	}
}

func (c *cache) Next(ctx context.Context, desired int) (int, error) {
	if c.table == nil {
		table, err := data.Load(ctx, c.Source)
		if err != nil {
			return 0, err
		}
		c.table = table
		c.current = table.Enumerate()
	}
	return c.current.Next(ctx, desired)
}

func (c *cache) Reset() {
	if c.current != nil {
		c.current.Reset()
	}
}

type cacheBuilder struct{}

func (cacheBuilder) Verbs() []string { return []string{"cache"} }
func (cacheBuilder) Usage() string   { return "'cache' all" }

func (cacheBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("cache", source); err != nil {
		return nil, err
	}
	if _, err := query.NextEnum(wc.Parser, "cacheScope", map[string]bool{"all": true}); err != nil {
		return nil, err
	}
	return &cache{Wrapper: data.Wrapper{Source: source}}, nil
}

package verbs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/xform/data"
	xerrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/query"
)

// concat returns the upstream rows followed by the rows of a nested pipeline
// with the same schema.
type concat struct {
	data.Wrapper
	nested  data.Enumerator
	current int
}

func (c *concat) sources() [2]data.Enumerator {
	return [2]data.Enumerator{c.Source, c.nested}
}

func (c *concat) ColumnGetter(index int) data.Getter {
	sources := c.sources()
	var getters [2]data.Getter
	for i, s := range sources {
		getters[i] = s.ColumnGetter(index)
	}
	return func() (data.Batch, error) {
		return getters[c.current]()
	}
}

func (c *concat) Next(ctx context.Context, desired int) (int, error) {
	sources := c.sources()
	for c.current < len(sources) {
		n, err := sources[c.current].Next(ctx, desired)
		if err != nil || n > 0 {
			return n, err
		}
		if c.current == len(sources)-1 {
			return 0, nil
		}
		c.current++
	}
	return 0, nil
}

func (c *concat) Reset() {
	c.current = 0
	c.Source.Reset()
	c.nested.Reset()
}

func (c *concat) Close() error {
	if c.Closed() {
		return nil
	}
	return errors.Join(c.Wrapper.Close(), c.nested.Close())
}

type concatBuilder struct{}

func (concatBuilder) Verbs() []string { return []string{"concat"} }
func (concatBuilder) Usage() string   { return "'concat' then a nested pipeline closed by 'end'" }

func (concatBuilder) Build(ctx context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("concat", source); err != nil {
		return nil, err
	}
	nested, err := wc.Parser.NextPipeline(ctx, nil)
	if err != nil {
		return nil, err
	}
	if nested == nil {
		return nil, xerrors.InvalidInput("concat", "the nested pipeline is empty")
	}
	if err := sameSchema(source.Columns(), nested.Columns()); err != nil {
		nested.Close()
		return nil, err
	}
	return &concat{Wrapper: data.Wrapper{Source: source}, nested: nested}, nil
}

func sameSchema(a, b []data.ColumnDetails) error {
	if len(a) != len(b) {
		return xerrors.InvalidInput("concat", fmt.Sprintf("nested pipeline has %d columns, upstream has %d", len(b), len(a)))
	}
	for i := range a {
		if !strings.EqualFold(a[i].Name, b[i].Name) || a[i].Type != b[i].Type {
			return xerrors.InvalidInput("concat", fmt.Sprintf("nested column %q (%v) does not match %q (%v)", b[i].Name, b[i].Type, a[i].Name, a[i].Type))
		}
	}
	return nil
}

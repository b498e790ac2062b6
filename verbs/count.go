package verbs

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/kbukum/xform/data"
	xerrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/query"
)

// count returns a single row holding the upstream row count. The upstream is
// iterated without requesting any column.
type count struct {
	data.Wrapper
	done  bool
	total int32
}

var countColumns = []data.ColumnDetails{data.NewColumn("Count", reflect.TypeOf(int32(0)))}

func (c *count) Columns() []data.ColumnDetails { return countColumns }

func (c *count) ColumnGetter(int) data.Getter {
	return func() (data.Batch, error) {
		return data.All([]int32{c.total}, 1, nil), nil
	}
}

func (c *count) Next(ctx context.Context, _ int) (int, error) {
	if c.done {
		return 0, nil
	}
	c.done = true
	total, err := data.Run(ctx, c.Source)
	if err != nil {
		return 0, err
	}
	if total > math.MaxInt32 {
		return 0, xerrors.Conversion(fmt.Sprintf("row count %d to int32", total), 0)
	}
	c.total = int32(total)
	return 1, nil
}

func (c *count) Reset() {
	c.done = false
	c.total = 0
	c.Source.Reset()
}

type countBuilder struct{}

func (countBuilder) Verbs() []string { return []string{"count"} }
func (countBuilder) Usage() string   { return "'count'" }

func (countBuilder) Build(_ context.Context, source data.Enumerator, _ *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("count", source); err != nil {
		return nil, err
	}
	return &count{Wrapper: data.Wrapper{Source: source}}, nil
}

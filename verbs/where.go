package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/types"
)

// where keeps the rows whose filter column matches. Only the filter column
// is requested upstream until a downstream stage asks for more.
type where struct {
	data.Wrapper
	column    int
	filter    data.Getter
	predicate types.Predicate
	rows      []int
}

func (w *where) ColumnGetter(index int) data.Getter {
	get := w.filter
	if index != w.column {
		get = w.Source.ColumnGetter(index)
	}
	return func() (data.Batch, error) {
		b, err := get()
		if err != nil {
			return b, err
		}
		return data.Select(b, w.rows), nil
	}
}

func (w *where) Next(ctx context.Context, desired int) (int, error) {
	for {
		n, err := w.Source.Next(ctx, desired)
		if err != nil || n == 0 {
			w.rows = w.rows[:0]
			return 0, err
		}
		b, err := w.filter()
		if err != nil {
			return 0, err
		}
		w.rows = w.predicate(b, w.rows[:0])
		if len(w.rows) > 0 {
			return len(w.rows), nil
		}
	}
}

func (w *where) Reset() {
	w.rows = w.rows[:0]
	w.Source.Reset()
}

type whereBuilder struct{}

func (whereBuilder) Verbs() []string { return []string{"where"} }
func (whereBuilder) Usage() string   { return "'where' [ColumnName] [Operator] [Value]" }

func (whereBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("where", source); err != nil {
		return nil, err
	}
	p := wc.Parser
	name, err := p.NextColumnName(source)
	if err != nil {
		return nil, err
	}
	opToken := p.Current()
	op, err := p.NextCompareOperator()
	if err != nil {
		return nil, err
	}
	valueToken := p.Current()
	literal, err := p.NextLiteralValue()
	if err != nil {
		return nil, err
	}

	index, _ := data.IndexOfColumn(source.Columns(), name)
	columnType := source.Columns()[index].Type
	value, err := wc.Types.ConvertSingle(literal, columnType)
	if err != nil || value == nil {
		return nil, p.UsageError(valueToken.Value, wc.Types.TypeName(columnType), nil)
	}
	predicate, err := types.NewPredicate(op, columnType, value)
	if err != nil {
		return nil, p.UsageError(opToken.Value, query.CategoryCompareOperator, types.CompareOperatorNames())
	}

	return &where{
		Wrapper:   data.Wrapper{Source: source},
		column:    index,
		filter:    source.ColumnGetter(index),
		predicate: predicate,
	}, nil
}

package verbs

import (
	"context"
	"reflect"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/types"
)

// cast replaces the type of one column. Conversion runs when the getter is
// called; other columns pass through untouched.
type cast struct {
	data.Wrapper
	columns []data.ColumnDetails
	column  int
	convert types.Converter
}

func (c *cast) Columns() []data.ColumnDetails { return c.columns }

func (c *cast) ColumnGetter(index int) data.Getter {
	get := c.Source.ColumnGetter(index)
	if index != c.column {
		return get
	}
	return func() (data.Batch, error) {
		b, err := get()
		if err != nil {
			return b, err
		}
		return c.convert(b)
	}
}

type castBuilder struct{}

func (castBuilder) Verbs() []string { return []string{"cast"} }
func (castBuilder) Usage() string {
	return "'cast' [ColumnName] [ToType] [ErrorOn?] [DefaultValue?] [ChangeToDefaultOn?]"
}

func (castBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("cast", source); err != nil {
		return nil, err
	}
	p := wc.Parser
	name, err := p.NextColumnName(source)
	if err != nil {
		return nil, err
	}
	target, err := p.NextType()
	if err != nil {
		return nil, err
	}

	var opts types.ConvertOptions
	if p.HasAnotherPart() {
		if opts.ErrorOn, err = p.NextValueKinds(); err != nil {
			return nil, err
		}
	}
	if p.HasAnotherPart() {
		if opts.Default, err = p.NextLiteralValue(); err != nil {
			return nil, err
		}
		opts.ChangeToDefault = types.Invalid
	}
	if p.HasAnotherPart() {
		if opts.ChangeToDefault, err = p.NextValueKinds(); err != nil {
			return nil, err
		}
	}

	return newCast(source, name, target, opts, wc.Types)
}

func newCast(source data.Enumerator, name string, target reflect.Type, opts types.ConvertOptions, registry *types.Registry) (*cast, error) {
	index, _ := data.IndexOfColumn(source.Columns(), name)
	columns := append([]data.ColumnDetails(nil), source.Columns()...)
	convert, err := registry.GetConverter(columns[index].Type, target, opts)
	if err != nil {
		return nil, err
	}
	columns[index] = columns[index].ChangeType(target)
	return &cast{Wrapper: data.Wrapper{Source: source}, columns: columns, column: index, convert: convert}, nil
}

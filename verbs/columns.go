package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
)

// projection exposes a subset of the upstream columns in a new order.
type projection struct {
	data.Wrapper
	columns []data.ColumnDetails
	mapping []int
}

func newProjection(source data.Enumerator, mapping []int) *projection {
	upstream := source.Columns()
	columns := make([]data.ColumnDetails, len(mapping))
	for i, m := range mapping {
		columns[i] = upstream[m]
	}
	return &projection{Wrapper: data.Wrapper{Source: source}, columns: columns, mapping: mapping}
}

func (p *projection) Columns() []data.ColumnDetails { return p.columns }

func (p *projection) ColumnGetter(index int) data.Getter {
	return p.Source.ColumnGetter(p.mapping[index])
}

type columnsBuilder struct{}

func (columnsBuilder) Verbs() []string { return []string{"columns", "select"} }
func (columnsBuilder) Usage() string   { return "'columns' [ColumnName], [ColumnName], ..." }

func (columnsBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("columns", source); err != nil {
		return nil, err
	}
	keep, err := readColumnNames(wc.Parser, source)
	if err != nil {
		return nil, err
	}
	return newProjection(source, keep), nil
}

type removeColumnsBuilder struct{}

func (removeColumnsBuilder) Verbs() []string { return []string{"removecolumns"} }
func (removeColumnsBuilder) Usage() string   { return "'removeColumns' [ColumnName], [ColumnName], ..." }

func (removeColumnsBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("removeColumns", source); err != nil {
		return nil, err
	}
	remove, err := readColumnNames(wc.Parser, source)
	if err != nil {
		return nil, err
	}
	removed := make(map[int]bool, len(remove))
	for _, i := range remove {
		removed[i] = true
	}
	var keep []int
	for i := range source.Columns() {
		if !removed[i] {
			keep = append(keep, i)
		}
	}
	return newProjection(source, keep), nil
}

// renamed passes the upstream through under new column names.
type renamed struct {
	data.Wrapper
	columns []data.ColumnDetails
}

func (r *renamed) Columns() []data.ColumnDetails { return r.columns }

type renameColumnsBuilder struct{}

func (renameColumnsBuilder) Verbs() []string { return []string{"renamecolumns"} }
func (renameColumnsBuilder) Usage() string {
	return "'renameColumns' [OldName] [NewName], [OldName] [NewName], ..."
}

func (renameColumnsBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("renameColumns", source); err != nil {
		return nil, err
	}
	p := wc.Parser
	columns := append([]data.ColumnDetails(nil), source.Columns()...)
	for {
		oldName, err := p.NextColumnName(source)
		if err != nil {
			return nil, err
		}
		tok := p.Current()
		newName, err := p.NextString()
		if err != nil {
			return nil, err
		}
		i, _ := data.IndexOfColumn(columns, oldName)
		if j, exists := data.IndexOfColumn(columns, newName); exists && j != i {
			return nil, p.UsageError(tok.Value, "newColumnName", nil)
		}
		columns[i] = columns[i].Rename(newName)
		if !p.HasAnotherPart() {
			break
		}
	}
	return &renamed{Wrapper: data.Wrapper{Source: source}, columns: columns}, nil
}

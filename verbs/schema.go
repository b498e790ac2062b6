package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
)

// schema lists the upstream columns as rows of Name and Type. The upstream
// is kept only so it is closed with the stage.
type schema struct {
	data.Wrapper
	rows data.Enumerator
}

func (s *schema) Columns() []data.ColumnDetails                { return s.rows.Columns() }
func (s *schema) ColumnGetter(index int) data.Getter           { return s.rows.ColumnGetter(index) }
func (s *schema) Next(ctx context.Context, n int) (int, error) { return s.rows.Next(ctx, n) }
func (s *schema) Reset()                                       { s.rows.Reset() }

type schemaBuilder struct{}

func (schemaBuilder) Verbs() []string { return []string{"schema"} }
func (schemaBuilder) Usage() string   { return "'schema'" }

func (schemaBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("schema", source); err != nil {
		return nil, err
	}
	upstream := source.Columns()
	names := make([]data.String8, len(upstream))
	typeNames := make([]data.String8, len(upstream))
	for i, c := range upstream {
		names[i] = data.Intern(c.Name)
		typeNames[i] = data.Intern(wc.Types.TypeName(c.Type))
	}
	table, err := data.NewTable(
		[]data.ColumnDetails{data.NewColumn("Name", data.TypeString8), data.NewColumn("Type", data.TypeString8)},
		[]any{names, typeNames},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &schema{Wrapper: data.Wrapper{Source: source}, rows: table.Enumerate()}, nil
}

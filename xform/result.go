package xform

import (
	"github.com/google/uuid"

	"github.com/kbukum/xform/types"
)

// Column names a result column and its type.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the materialized output of a pipeline.
type Result struct {
	RunID        uuid.UUID `json:"run_id"`
	Columns      []Column  `json:"columns"`
	Rows         [][]any   `json:"rows"`
	RowCount     int       `json:"row_count"`
	Truncated    bool      `json:"truncated"`
	Dependencies []string  `json:"dependencies,omitempty"`
}

func newResult(p *Pipeline, registry *types.Registry, rows [][]any, maxRows int) *Result {
	truncated := maxRows > 0 && len(rows) > maxRows
	if truncated {
		rows = rows[:maxRows]
	}
	if rows == nil {
		rows = [][]any{}
	}
	columns := p.Columns()
	out := &Result{
		RunID:        p.RunID,
		Columns:      make([]Column, len(columns)),
		Rows:         rows,
		RowCount:     len(rows),
		Truncated:    truncated,
		Dependencies: p.Dependencies,
	}
	for i, c := range columns {
		out.Columns[i] = Column{Name: c.Name, Type: registry.TypeName(c.Type)}
	}
	return out
}

// ColumnNames returns the result column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

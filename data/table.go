package data

import (
	"context"
	"fmt"
)

// Table is an immutable in-memory set of columns of equal length.
type Table struct {
	columns []ColumnDetails
	arrays  []any
	nulls   [][]bool
	rows    int
}

// NewTable creates a table from one typed array per column. nulls may be nil,
// or hold a nil entry for columns without nulls.
func NewTable(columns []ColumnDetails, arrays []any, nulls [][]bool) (*Table, error) {
	if len(arrays) != len(columns) {
		return nil, fmt.Errorf("table has %d columns but %d arrays", len(columns), len(arrays))
	}
	if nulls == nil {
		nulls = make([][]bool, len(columns))
	}
	rows := 0
	for i, c := range columns {
		if i == 0 {
			rows = ArrayLen(arrays[i])
		}
		if ArrayLen(arrays[i]) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, ArrayLen(arrays[i]), rows)
		}
		if ElementType(arrays[i]) != c.Type {
			return nil, fmt.Errorf("column %q declared %v but array holds %v", c.Name, c.Type, ElementType(arrays[i]))
		}
		if nulls[i] != nil && len(nulls[i]) != rows {
			return nil, fmt.Errorf("column %q null bitmap has %d rows, expected %d", c.Name, len(nulls[i]), rows)
		}
	}
	return &Table{columns: columns, arrays: arrays, nulls: nulls, rows: rows}, nil
}

// Columns returns the table schema.
func (t *Table) Columns() []ColumnDetails { return t.columns }

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// Enumerate returns a fresh enumerator over the table.
func (t *Table) Enumerate() Enumerator {
	return &tableEnumerator{table: t}
}

type tableEnumerator struct {
	table *Table
	start int
	count int
}

func (e *tableEnumerator) Columns() []ColumnDetails { return e.table.columns }

func (e *tableEnumerator) ColumnGetter(index int) Getter {
	array, nulls := e.table.arrays[index], e.table.nulls[index]
	return func() (Batch, error) {
		var isNull []bool
		if nulls != nil {
			isNull = nulls[e.start : e.start+e.count]
		}
		return All(SliceArray(array, e.start, e.start+e.count), e.count, isNull), nil
	}
}

func (e *tableEnumerator) Next(_ context.Context, desired int) (int, error) {
	e.start += e.count
	e.count = min(desired, e.table.rows-e.start)
	return e.count, nil
}

func (e *tableEnumerator) Reset() {
	e.start, e.count = 0, 0
}

func (e *tableEnumerator) Close() error { return nil }

// TableBuilder accumulates batches into a Table.
type TableBuilder struct {
	columns []ColumnDetails
	arrays  []any
	nulls   [][]bool
	rows    []int
}

// NewTableBuilder starts an empty table with the given schema.
func NewTableBuilder(columns []ColumnDetails) *TableBuilder {
	b := &TableBuilder{
		columns: columns,
		arrays:  make([]any, len(columns)),
		nulls:   make([][]bool, len(columns)),
		rows:    make([]int, len(columns)),
	}
	for i, c := range columns {
		b.arrays[i] = MakeArray(c.Type, 0)
	}
	return b
}

// Append adds the logical rows of batch to a column.
func (b *TableBuilder) Append(column int, batch Batch) {
	dense := Dense(batch)
	b.arrays[column] = AppendArrays(b.arrays[column], SliceArray(dense.Array, 0, dense.Count))

	switch {
	case dense.IsNull != nil && dense.HasNulls():
		if b.nulls[column] == nil {
			b.nulls[column] = make([]bool, b.rows[column])
		}
		b.nulls[column] = append(b.nulls[column], dense.IsNull[:dense.Count]...)
	case b.nulls[column] != nil:
		b.nulls[column] = append(b.nulls[column], make([]bool, dense.Count)...)
	}
	b.rows[column] += dense.Count
}

// Table returns the accumulated table.
func (b *TableBuilder) Table() (*Table, error) {
	return NewTable(b.columns, b.arrays, b.nulls)
}

// Load reads every row of e into a table. It resets e first and does not close it.
func Load(ctx context.Context, e Enumerator) (*Table, error) {
	columns := e.Columns()
	getters := make([]Getter, len(columns))
	for i := range columns {
		getters[i] = e.ColumnGetter(i)
	}
	b := NewTableBuilder(columns)

	e.Reset()
	for {
		n, err := e.Next(ctx, DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for i, get := range getters {
			batch, err := get()
			if err != nil {
				return nil, err
			}
			b.Append(i, batch)
		}
	}
	return b.Table()
}

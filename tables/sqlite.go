package tables

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
)

// SQLiteSource exposes the tables and views of a SQLite database.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database at path.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.IO("open", path, fmt.Errorf("unable to open sqlite database: %w", err))
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// DB returns the underlying handle.
func (s *SQLiteSource) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Tables lists table and view names.
func (s *SQLiteSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_schema WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, errors.IO("list tables", s.path, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.IO("list tables", s.path, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *SQLiteSource) find(ctx context.Context, name string) (string, bool, error) {
	names, err := s.Tables(ctx)
	if err != nil {
		return "", false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true, nil
		}
	}
	return "", false, nil
}

// columnType maps a declared SQLite type to a column type by affinity.
func columnType(declared string) reflect.Type {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "BOOL"):
		return reflect.TypeOf(false)
	case strings.Contains(t, "INT"):
		return reflect.TypeOf(int64(0))
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return reflect.TypeOf(float64(0))
	case strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"):
		return reflect.TypeOf(decimal.Decimal{})
	default:
		return data.TypeString8
	}
}

// Enumerate returns an enumerator over a table. Only the requested columns
// are selected; the query runs on the first Next after a Reset.
func (s *SQLiteSource) Enumerate(ctx context.Context, table string) (data.Enumerator, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, errors.IO("describe", table, err)
	}
	defer rows.Close()

	var columns []data.ColumnDetails
	for rows.Next() {
		var name, declared string
		if err := rows.Scan(&name, &declared); err != nil {
			return nil, errors.IO("describe", table, err)
		}
		columns = append(columns, data.NewColumn(name, columnType(declared)))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IO("describe", table, err)
	}
	return &sqliteTable{
		db:        s.db,
		table:     table,
		columns:   columns,
		requested: make([]bool, len(columns)),
		arrays:    make([]any, len(columns)),
		nulls:     make([][]bool, len(columns)),
	}, nil
}

type sqliteTable struct {
	db        *sql.DB
	table     string
	columns   []data.ColumnDetails
	requested []bool

	rows     *sql.Rows
	selected []int
	arrays   []any
	nulls    [][]bool
	count    int
	done     bool
}

func (t *sqliteTable) Columns() []data.ColumnDetails { return t.columns }

func (t *sqliteTable) ColumnGetter(index int) data.Getter {
	t.requested[index] = true
	return func() (data.Batch, error) {
		return data.All(t.arrays[index], t.count, t.nulls[index]), nil
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t *sqliteTable) query(ctx context.Context) error {
	t.selected = t.selected[:0]
	var exprs []string
	for i, ok := range t.requested {
		if ok {
			t.selected = append(t.selected, i)
			exprs = append(exprs, quoteIdent(t.columns[i].Name))
		}
	}
	if len(exprs) == 0 {
		exprs = []string{"1"}
	}
	rows, err := t.db.QueryContext(ctx, "SELECT "+strings.Join(exprs, ", ")+" FROM "+quoteIdent(t.table))
	if err != nil {
		return errors.IO("query", t.table, err)
	}
	t.rows = rows
	return nil
}

func (t *sqliteTable) Next(ctx context.Context, desired int) (int, error) {
	t.count = 0
	if t.done {
		return 0, nil
	}
	if t.rows == nil {
		if err := t.query(ctx); err != nil {
			return 0, err
		}
	}
	for _, c := range t.selected {
		t.arrays[c] = data.MakeArray(t.columns[c].Type, 0)
		t.nulls[c] = nil
	}

	values := make([]any, max(len(t.selected), 1))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	for t.count < desired && t.rows.Next() {
		if err := t.rows.Scan(dest...); err != nil {
			return 0, errors.IO("scan", t.table, err)
		}
		for i, c := range t.selected {
			v, ok := coerce(values[i], t.columns[c].Type)
			if !ok {
				if t.nulls[c] == nil {
					t.nulls[c] = make([]bool, t.count, desired)
				}
			}
			if t.nulls[c] != nil {
				t.nulls[c] = append(t.nulls[c], !ok)
			}
			t.arrays[c] = appendValue(t.arrays[c], v, t.columns[c].Type)
		}
		t.count++
	}
	if t.count < desired {
		if err := t.rows.Err(); err != nil {
			return 0, errors.IO("query", t.table, err)
		}
		t.done = true
		t.rows.Close()
		t.rows = nil
	}
	return t.count, nil
}

func appendValue(array any, v any, elem reflect.Type) any {
	if v == nil {
		v = reflect.Zero(elem).Interface()
	}
	return data.AppendArrays(array, data.Single(v).Array)
}

// coerce converts a scanned SQLite value to the column type. NULL and values
// of an unexpected storage class report false.
func coerce(v any, elem reflect.Type) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch elem {
	case data.TypeString8:
		switch x := v.(type) {
		case string:
			return data.Intern(x), true
		case []byte:
			return data.Intern(string(x)), true
		default:
			return data.Intern(fmt.Sprint(x)), true
		}
	case reflect.TypeOf(int64(0)):
		if x, ok := v.(int64); ok {
			return x, true
		}
	case reflect.TypeOf(float64(0)):
		switch x := v.(type) {
		case float64:
			return x, true
		case int64:
			return float64(x), true
		}
	case reflect.TypeOf(false):
		if x, ok := v.(int64); ok {
			return x != 0, true
		}
	case reflect.TypeOf(decimal.Decimal{}):
		switch x := v.(type) {
		case int64:
			return decimal.NewFromInt(x), true
		case float64:
			return decimal.NewFromFloat(x), true
		case string:
			d, err := decimal.NewFromString(x)
			return d, err == nil
		}
	}
	return nil, false
}

func (t *sqliteTable) Reset() {
	if t.rows != nil {
		t.rows.Close()
		t.rows = nil
	}
	t.count = 0
	t.done = false
}

func (t *sqliteTable) Close() error {
	t.Reset()
	return nil
}

package data

import (
	"reflect"
	"strings"
)

// ColumnDetails describes one column of a stage's schema. Names are unique
// within a schema and compared case-insensitively.
type ColumnDetails struct {
	Name string
	Type reflect.Type
}

// NewColumn creates column details.
func NewColumn(name string, t reflect.Type) ColumnDetails {
	return ColumnDetails{Name: name, Type: t}
}

// Rename returns a copy with a new name.
func (c ColumnDetails) Rename(name string) ColumnDetails {
	c.Name = name
	return c
}

// ChangeType returns a copy with a new type.
func (c ColumnDetails) ChangeType(t reflect.Type) ColumnDetails {
	c.Type = t
	return c
}

// IndexOfColumn finds a column by case-insensitive name.
func IndexOfColumn(columns []ColumnDetails, name string) (int, bool) {
	for i, c := range columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// ColumnNames returns the names in schema order.
func ColumnNames(columns []ColumnDetails) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kbukum/xform/xform"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func validFormat(format string) bool {
	return slices.Contains([]string{formatTable, formatCSV, formatJSON}, format)
}

func render(w io.Writer, r *xform.Result, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(r.ColumnNames()); err != nil {
			return err
		}
		for _, row := range r.Rows {
			if err := cw.Write(cells(row)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		renderTable(w, r)
		return nil
	}
}

func renderTable(w io.Writer, r *xform.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c.Name
	}
	t.AppendHeader(header)
	for _, row := range r.Rows {
		out := make(table.Row, len(row))
		for i, c := range cells(row) {
			out[i] = c
		}
		t.AppendRow(out)
	}
	footer := fmt.Sprintf("%d rows", r.RowCount)
	if r.RowCount == 1 {
		footer = "1 row"
	}
	if r.Truncated {
		footer += " (truncated)"
	}
	t.SetCaption(footer)
	t.Render()
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch v := v.(type) {
		case nil:
		case time.Time:
			out[i] = v.Format(time.RFC3339Nano)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

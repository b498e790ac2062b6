package verbs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// sink receives the rows written by the write verb. values holds the native
// value of each column (nil for null) and text its display form.
type sink interface {
	WriteRow(values []any, text []string) error
	Close() error
}

// Output formats by destination extension.
const (
	formatCSV   = ".csv"
	formatJSON  = ".json"
	formatTable = ".txt"
)

func formatOf(destination string) string {
	switch ext := strings.ToLower(path.Ext(destination)); ext {
	case formatJSON, formatTable:
		return ext
	default:
		return formatCSV
	}
}

func newSink(format string, w io.WriteCloser, header []string) (sink, error) {
	switch format {
	case formatJSON:
		return &jsonSink{w: w, header: header}, nil
	case formatTable:
		t := table.NewWriter()
		row := make(table.Row, len(header))
		for i, h := range header {
			row[i] = h
		}
		t.AppendHeader(row)
		return &tableSink{w: w, t: t}, nil
	default:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return nil, err
		}
		return &csvSink{w: w, cw: cw}, nil
	}
}

type csvSink struct {
	w  io.WriteCloser
	cw *csv.Writer
}

func (s *csvSink) WriteRow(_ []any, text []string) error {
	return s.cw.Write(text)
}

func (s *csvSink) Close() error {
	s.cw.Flush()
	if err := s.cw.Error(); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}

// jsonSink writes one JSON object per line with keys in column order.
type jsonSink struct {
	w      io.WriteCloser
	header []string
	buf    bytes.Buffer
}

func (s *jsonSink) WriteRow(values []any, _ []string) error {
	s.buf.Reset()
	s.buf.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			s.buf.WriteByte(',')
		}
		key, err := json.Marshal(s.header[i])
		if err != nil {
			return err
		}
		value, err := json.Marshal(v)
		if err != nil {
			return err
		}
		s.buf.Write(key)
		s.buf.WriteByte(':')
		s.buf.Write(value)
	}
	s.buf.WriteString("}\n")
	_, err := s.w.Write(s.buf.Bytes())
	return err
}

func (s *jsonSink) Close() error { return s.w.Close() }

// tableSink renders an aligned text table when closed.
type tableSink struct {
	w io.WriteCloser
	t table.Writer
}

func (s *tableSink) WriteRow(_ []any, cells []string) error {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	s.t.AppendRow(row)
	return nil
}

func (s *tableSink) Close() error {
	s.t.SetStyle(table.StyleLight)
	s.t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	if _, err := io.WriteString(s.w, s.t.Render()+"\n"); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

package tables

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/streams"
)

// CSVSource enumerates a CSV stream with a header row. Every column is
// String8; only requested columns are materialized.
type CSVSource struct {
	streams   streams.Provider
	name      string
	columns   []data.ColumnDetails
	requested []bool

	stream io.ReadCloser
	reader *csv.Reader
	arrays [][]data.String8
	count  int
	done   bool
	closed bool
}

// NewCSVSource opens the stream and reads its header.
func NewCSVSource(p streams.Provider, name string) (*CSVSource, error) {
	s := &CSVSource{streams: p, name: name}
	if err := s.open(); err != nil {
		return nil, err
	}
	header, err := s.reader.Read()
	if err != nil && err != io.EOF {
		s.Close()
		return nil, errors.IO("read header", name, err)
	}
	s.columns = make([]data.ColumnDetails, len(header))
	for i, h := range header {
		s.columns[i] = data.NewColumn(h, data.TypeString8)
	}
	s.requested = make([]bool, len(header))
	s.arrays = make([][]data.String8, len(header))
	return s, nil
}

func (s *CSVSource) open() error {
	stream, err := s.streams.OpenRead(s.name)
	if err != nil {
		return err
	}
	s.stream = stream
	s.reader = csv.NewReader(stream)
	s.reader.ReuseRecord = true
	s.reader.FieldsPerRecord = -1
	s.done = false
	return nil
}

func (s *CSVSource) Columns() []data.ColumnDetails { return s.columns }

func (s *CSVSource) ColumnGetter(index int) data.Getter {
	s.requested[index] = true
	return func() (data.Batch, error) {
		return data.All(s.arrays[index], s.count, nil), nil
	}
}

func (s *CSVSource) Next(ctx context.Context, desired int) (int, error) {
	s.count = 0
	if s.done {
		return 0, nil
	}
	if s.reader == nil {
		if err := s.reopen(); err != nil {
			return 0, err
		}
	}
	for i, ok := range s.requested {
		if ok {
			s.arrays[i] = s.arrays[i][:0]
		}
	}

	for s.count < desired {
		record, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			break
		}
		if err != nil {
			return 0, errors.IO("read", s.name, err)
		}
		for i, ok := range s.requested {
			if !ok {
				continue
			}
			var v data.String8
			if i < len(record) {
				v = data.Intern(record[i])
			}
			s.arrays[i] = append(s.arrays[i], v)
		}
		s.count++
	}
	return s.count, ctx.Err()
}

// reopen rewinds the stream past the header.
func (s *CSVSource) reopen() error {
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.reader.Read(); err != nil && err != io.EOF {
		return errors.IO("read header", s.name, err)
	}
	return nil
}

// Reset rewinds to the first data row. The stream is reopened lazily.
func (s *CSVSource) Reset() {
	s.release()
	s.count = 0
	s.done = false
}

func (s *CSVSource) release() {
	if s.stream != nil {
		s.stream.Close()
	}
	s.stream, s.reader = nil, nil
}

func (s *CSVSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream, s.reader = nil, nil
	return err
}

package verbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/kbukum/xform/data"
	xerrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/types"
)

// write copies every row it passes through to a destination stream. The
// destination is opened on the first Next after a Reset and finished when
// the upstream is exhausted or the stage is closed.
type write struct {
	data.Wrapper
	streams     streams.Provider
	log         *logger.Logger
	destination string
	format      string
	header      []string
	getters     []data.Getter
	text        []types.Converter

	sink     sink
	finished bool
	rows     int
}

func (w *write) ColumnGetter(index int) data.Getter { return w.getters[index] }

func (w *write) Next(ctx context.Context, desired int) (int, error) {
	n, err := w.Source.Next(ctx, desired)
	if err != nil {
		return n, err
	}
	if w.finished {
		return n, nil
	}
	if w.sink == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if n == 0 {
		return 0, w.finish()
	}
	if err := w.writeBatch(n); err != nil {
		return 0, err
	}
	return n, nil
}

func (w *write) open() error {
	var out io.WriteCloser
	if w.destination == streams.Stdout {
		out = nopWriteCloser{w.streams.Stdout()}
	} else {
		f, err := w.streams.OpenWrite(w.destination)
		if err != nil {
			return err
		}
		out = f
	}
	s, err := newSink(w.format, out, w.header)
	if err != nil {
		out.Close()
		return xerrors.IO("write", w.destination, err)
	}
	w.sink = s
	w.rows = 0
	return nil
}

func (w *write) writeBatch(n int) error {
	batches := make([]data.Batch, len(w.getters))
	texts := make([]data.Batch, len(w.getters))
	for i, get := range w.getters {
		b, err := get()
		if err != nil {
			return err
		}
		batches[i] = b
		if w.text[i] != nil {
			if texts[i], err = w.text[i](b); err != nil {
				return err
			}
		}
	}

	values := make([]any, len(batches))
	cells := make([]string, len(batches))
	for row := 0; row < n; row++ {
		for i, b := range batches {
			values[i] = b.Value(row)
			switch {
			case values[i] == nil:
				cells[i] = ""
			case w.text[i] != nil:
				cells[i] = texts[i].Array.([]string)[texts[i].Index(row)]
			default:
				cells[i] = fmt.Sprint(values[i])
			}
		}
		if err := w.sink.WriteRow(values, cells); err != nil {
			return xerrors.IO("write", w.destination, err)
		}
	}
	w.rows += n
	return nil
}

func (w *write) finish() error {
	if w.sink == nil || w.finished {
		return nil
	}
	w.finished = true
	err := w.sink.Close()
	w.sink = nil
	if err != nil {
		return xerrors.IO("close", w.destination, err)
	}
	w.log.Info("output written", logger.Fields(logger.FieldDestination, w.destination, logger.FieldRows, w.rows))
	return nil
}

// Reset abandons a partial output; the next run rewrites it from the start.
func (w *write) Reset() {
	if w.sink != nil {
		_ = w.sink.Close()
		w.sink = nil
	}
	w.finished = false
	w.Source.Reset()
}

func (w *write) Close() error {
	if w.Closed() {
		return nil
	}
	return errors.Join(w.finish(), w.Wrapper.Close())
}

type writeBuilder struct{}

func (writeBuilder) Verbs() []string { return []string{"write"} }
func (writeBuilder) Usage() string   { return "'write' [OutputName]" }

// Build requests every upstream column, since all of them are written.
// A destination without extension is written as a CSV table under Table/.
func (writeBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("write", source); err != nil {
		return nil, err
	}
	destination, err := wc.Parser.NextOutputTableName()
	if err != nil {
		return nil, err
	}
	if destination != streams.Stdout && path.Ext(destination) == "" {
		destination = path.Join(streams.TableFolder, destination+formatCSV)
	}
	format := formatOf(destination)
	if destination == streams.Stdout {
		format = formatTable
	}

	columns := source.Columns()
	w := &write{
		Wrapper:     data.Wrapper{Source: source},
		streams:     wc.Streams,
		log:         wc.Log(),
		destination: destination,
		format:      format,
		header:      data.ColumnNames(columns),
		getters:     make([]data.Getter, len(columns)),
		text:        make([]types.Converter, len(columns)),
	}
	for i, c := range columns {
		w.getters[i] = source.ColumnGetter(i)
		if c.Type != data.TypeString {
			// types without a text form fall back to fmt
			w.text[i], _, _ = wc.Types.TryGetConverter(c.Type, data.TypeString, types.ConvertOptions{})
		}
	}
	return w, nil
}

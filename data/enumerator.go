package data

import "context"

// Getter returns the current batch for one column.
type Getter func() (Batch, error)

// Enumerator is one stage of a pipeline.
//
// Lifecycle: constructed around zero or one upstream, iterated any number of
// times through Reset/Next, closed exactly once. Close releases the upstream;
// closing twice is a no-op.
type Enumerator interface {
	// Columns returns the stage schema in enumeration order.
	Columns() []ColumnDetails
	// ColumnGetter returns the getter for a column. Stages request upstream
	// getters only for columns their own callers request.
	ColumnGetter(index int) Getter
	// Next advances to the next batch of at most desired rows and returns
	// the number of rows available, or 0 at the end.
	Next(ctx context.Context, desired int) (int, error)
	// Reset returns the stage and its upstream to the pre-iteration state.
	Reset()
	// Close releases held resources and the upstream.
	Close() error
}

// Wrapper is the base for single-upstream stages. Embedders override the
// methods they change; the rest pass through to Source.
type Wrapper struct {
	Source Enumerator
	closed bool
}

// Columns passes the upstream schema through.
func (w *Wrapper) Columns() []ColumnDetails { return w.Source.Columns() }

// ColumnGetter passes the upstream getter through.
func (w *Wrapper) ColumnGetter(index int) Getter { return w.Source.ColumnGetter(index) }

// Next advances the upstream.
func (w *Wrapper) Next(ctx context.Context, desired int) (int, error) {
	return w.Source.Next(ctx, desired)
}

// Reset resets the upstream.
func (w *Wrapper) Reset() { w.Source.Reset() }

// Close closes the upstream once.
func (w *Wrapper) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.Source == nil {
		return nil
	}
	return w.Source.Close()
}

// Closed reports whether Close has been called.
func (w *Wrapper) Closed() bool { return w.closed }

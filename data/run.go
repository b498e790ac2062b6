package data

import (
	"context"
	"errors"
)

// DefaultBatchSize is the row count requested per Next by Run.
const DefaultBatchSize = 10240

// Run resets e and pulls every batch without requesting any column,
// returning the total row count.
func Run(ctx context.Context, e Enumerator) (int, error) {
	return RunBatchSize(ctx, e, DefaultBatchSize)
}

// RunBatchSize is Run with an explicit batch size.
func RunBatchSize(ctx context.Context, e Enumerator, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	e.Reset()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := e.Next(ctx, batchSize)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

// RunAndClose runs e to completion and closes it.
func RunAndClose(ctx context.Context, e Enumerator) (int, error) {
	n, err := Run(ctx, e)
	return n, errors.Join(err, e.Close())
}

// Collect resets e and reads up to maxRows rows of every column as values
// (nil for nulls). A maxRows of 0 or less reads everything.
func Collect(ctx context.Context, e Enumerator, maxRows int) ([][]any, error) {
	var rows [][]any
	_, err := Each(ctx, e, DefaultBatchSize, maxRows, func(batch [][]any) error {
		rows = append(rows, batch...)
		return nil
	})
	return rows, err
}

// Each resets e and passes the rows of every batch to fn, stopping after
// maxRows rows when maxRows is positive. It returns the rows delivered.
// Each call of fn gets freshly allocated rows.
func Each(ctx context.Context, e Enumerator, batchSize, maxRows int, fn func(rows [][]any) error) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	columns := e.Columns()
	getters := make([]Getter, len(columns))
	for i := range columns {
		getters[i] = e.ColumnGetter(i)
	}

	e.Reset()
	total := 0
	for maxRows <= 0 || total < maxRows {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		desired := batchSize
		if maxRows > 0 {
			desired = min(desired, maxRows-total)
		}
		n, err := e.Next(ctx, desired)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		rows := make([][]any, n)
		for i := range rows {
			rows[i] = make([]any, len(columns))
		}
		for c, get := range getters {
			b, err := get()
			if err != nil {
				return total, err
			}
			for i := 0; i < n; i++ {
				rows[i][c] = b.Value(i)
			}
		}
		if err := fn(rows); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

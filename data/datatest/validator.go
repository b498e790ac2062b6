// Package datatest provides a contract-checking enumerator for pipeline tests.
package datatest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/xform/data"
)

// Validator wraps an enumerator and checks that its callers obey the batch
// contract. It records which columns were requested and how often Close was
// called, and its getters fail when called outside a batch window, when the
// batch breaks its invariants or when the element type does not match the
// declared column type.
type Validator struct {
	data.Wrapper

	requested  map[string]bool
	closeCalls int
	resetCalls int
	current    int
	inWindow   bool
}

// NewValidator wraps source.
func NewValidator(source data.Enumerator) *Validator {
	return &Validator{Wrapper: data.Wrapper{Source: source}, requested: map[string]bool{}}
}

// ColumnGetter records the request and returns a checking getter.
func (v *Validator) ColumnGetter(index int) data.Getter {
	column := v.Columns()[index]
	v.requested[strings.ToLower(column.Name)] = true
	inner := v.Source.ColumnGetter(index)

	return func() (data.Batch, error) {
		if !v.inWindow {
			return data.Batch{}, fmt.Errorf("getter for %q called outside a batch", column.Name)
		}
		b, err := inner()
		if err != nil {
			return b, err
		}
		if b.Count != v.current {
			return b, fmt.Errorf("column %q returned %d rows, Next returned %d", column.Name, b.Count, v.current)
		}
		if err := b.Validate(); err != nil {
			return b, fmt.Errorf("column %q: %w", column.Name, err)
		}
		if elem := data.ElementType(b.Array); elem != column.Type {
			return b, fmt.Errorf("column %q declared %v but returned %v", column.Name, column.Type, elem)
		}
		return b, nil
	}
}

// Next advances the source and opens the getter window.
func (v *Validator) Next(ctx context.Context, desired int) (int, error) {
	n, err := v.Source.Next(ctx, desired)
	if err != nil {
		v.inWindow = false
		return n, err
	}
	if n > desired {
		return n, fmt.Errorf("Next returned %d rows, %d were requested", n, desired)
	}
	v.current = n
	v.inWindow = n > 0
	return n, nil
}

// Reset closes the getter window and resets the source.
func (v *Validator) Reset() {
	v.resetCalls++
	v.inWindow = false
	v.Source.Reset()
}

// Close counts the call and closes the source once.
func (v *Validator) Close() error {
	v.closeCalls++
	v.inWindow = false
	return v.Wrapper.Close()
}

// ColumnGettersRequested returns the lower-cased names of requested columns, sorted.
func (v *Validator) ColumnGettersRequested() []string {
	names := make([]string, 0, len(v.requested))
	for n := range v.requested {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ClearRequested forgets previously requested columns.
func (v *Validator) ClearRequested() {
	v.requested = map[string]bool{}
}

// CloseCalls is the number of times Close was called.
func (v *Validator) CloseCalls() int { return v.closeCalls }

// ResetCalls is the number of times Reset was called.
func (v *Validator) ResetCalls() int { return v.resetCalls }

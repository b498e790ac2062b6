package data

import (
	"fmt"
	"reflect"
)

// Batch is up to Count rows of one column.
//
// Array is a typed slice. When Indices is nil, logical row i is Array[i];
// otherwise it is Array[Indices[i]]. IsNull parallels Array (it is indexed by
// backing-array position, not logical row) and is nil when no row is null.
type Batch struct {
	Array   any
	Count   int
	Indices []int
	IsNull  []bool
}

// All wraps the first count values of array as a batch.
func All(array any, count int, isNull []bool) Batch {
	return Batch{Array: array, Count: count, IsNull: isNull}
}

// Single wraps one value into a length-1 batch of the value's own type.
func Single(value any) Batch {
	arr := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(value)), 1, 1)
	arr.Index(0).Set(reflect.ValueOf(value))
	return All(arr.Interface(), 1, nil)
}

// Select returns a view of b containing only the given logical rows.
// Existing remaps are composed so the result still points into b.Array.
func Select(b Batch, rows []int) Batch {
	indices := make([]int, len(rows))
	for i, r := range rows {
		indices[i] = b.Index(r)
	}
	return Batch{Array: b.Array, Count: len(rows), Indices: indices, IsNull: b.IsNull}
}

// Index maps a logical row to its backing-array position.
func (b Batch) Index(i int) int {
	if b.Indices == nil {
		return i
	}
	return b.Indices[i]
}

// IsNullAt reports whether logical row i is null.
func (b Batch) IsNullAt(i int) bool {
	return b.IsNull != nil && b.IsNull[b.Index(i)]
}

// HasNulls reports whether any logical row is null.
func (b Batch) HasNulls() bool {
	if b.IsNull == nil {
		return false
	}
	for i := 0; i < b.Count; i++ {
		if b.IsNull[b.Index(i)] {
			return true
		}
	}
	return false
}

// Value returns logical row i, or nil when it is null.
func (b Batch) Value(i int) any {
	if b.IsNullAt(i) {
		return nil
	}
	return ArrayValue(b.Array, b.Index(i))
}

// Validate checks the batch invariants.
func (b Batch) Validate() error {
	length := ArrayLen(b.Array)
	if b.Count < 0 {
		return fmt.Errorf("batch count %d is negative", b.Count)
	}
	if b.Indices == nil {
		if b.Count > length {
			return fmt.Errorf("batch count %d exceeds array length %d", b.Count, length)
		}
		if b.IsNull != nil && len(b.IsNull) < b.Count {
			return fmt.Errorf("null bitmap length %d is shorter than count %d", len(b.IsNull), b.Count)
		}
		return nil
	}
	if len(b.Indices) < b.Count {
		return fmt.Errorf("remap length %d is shorter than count %d", len(b.Indices), b.Count)
	}
	for i := 0; i < b.Count; i++ {
		idx := b.Indices[i]
		if idx < 0 || idx >= length {
			return fmt.Errorf("remapped index %d out of range [0, %d)", idx, length)
		}
		if b.IsNull != nil && idx >= len(b.IsNull) {
			return fmt.Errorf("remapped index %d outside null bitmap of length %d", idx, len(b.IsNull))
		}
	}
	return nil
}

// Values returns the backing array as []T.
func Values[T any](b Batch) ([]T, bool) {
	arr, ok := b.Array.([]T)
	return arr, ok
}

// Dense copies the logical rows of b into a new array with no remap.
// A batch that is already dense is returned unchanged.
func Dense(b Batch) Batch {
	if b.Indices == nil {
		return b
	}
	elem := reflect.TypeOf(b.Array).Elem()
	src := reflect.ValueOf(b.Array)
	dst := reflect.MakeSlice(reflect.SliceOf(elem), b.Count, b.Count)
	var isNull []bool
	if b.IsNull != nil {
		isNull = make([]bool, b.Count)
	}
	for i := 0; i < b.Count; i++ {
		idx := b.Indices[i]
		dst.Index(i).Set(src.Index(idx))
		if isNull != nil {
			isNull[i] = b.IsNull[idx]
		}
	}
	return All(dst.Interface(), b.Count, isNull)
}

// RemapNulls returns the source null flags in logical row order, reusing
// buffer when it is large enough. It returns nil when the source has no nulls.
func RemapNulls(source Batch, buffer []bool) []bool {
	if source.IsNull == nil {
		return nil
	}
	if cap(buffer) < source.Count {
		buffer = make([]bool, source.Count)
	}
	buffer = buffer[:source.Count]
	for i := 0; i < source.Count; i++ {
		buffer[i] = source.IsNull[source.Index(i)]
	}
	return buffer
}

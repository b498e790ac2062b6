package data

import "reflect"

// MakeArray allocates a typed slice of n zero values.
func MakeArray(elem reflect.Type, n int) any {
	return reflect.MakeSlice(reflect.SliceOf(elem), n, n).Interface()
}

// ArrayLen returns the length of a typed slice; nil has length 0.
func ArrayLen(array any) int {
	if array == nil {
		return 0
	}
	return reflect.ValueOf(array).Len()
}

// ArrayValue returns element i of a typed slice.
func ArrayValue(array any, i int) any {
	return reflect.ValueOf(array).Index(i).Interface()
}

// SetArrayValue assigns element i of a typed slice.
func SetArrayValue(array any, i int, value any) {
	reflect.ValueOf(array).Index(i).Set(reflect.ValueOf(value))
}

// SliceArray returns array[start:end] without copying.
func SliceArray(array any, start, end int) any {
	return reflect.ValueOf(array).Slice(start, end).Interface()
}

// AppendArrays appends the elements of src to dst; both must share an element type.
func AppendArrays(dst, src any) any {
	return reflect.AppendSlice(reflect.ValueOf(dst), reflect.ValueOf(src)).Interface()
}

// ElementType returns the element type of a typed slice.
func ElementType(array any) reflect.Type {
	return reflect.TypeOf(array).Elem()
}

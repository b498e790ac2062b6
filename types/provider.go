package types

import (
	"reflect"

	"github.com/kbukum/xform/data"
)

// NegatedTryConvert converts a batch into a dense array of Count values and
// flags the rows it could not convert. Rows that are null in the source are
// flagged too. Flagged rows hold the default value. A nil flag slice means
// every row converted.
type NegatedTryConvert func(source data.Batch) (result any, couldNotConvert []bool)

// Provider describes one registered column type.
type Provider interface {
	// Name is the type name used in scripts.
	Name() string
	// Type is the Go element type of columns of this type.
	Type() reflect.Type
	// DefaultValue is substituted for rows that could not be converted when
	// no explicit default is configured.
	DefaultValue() any
	// NegatedTryConvert returns a conversion from source to target, or nil if
	// this provider cannot convert between them. defaultValue is already of
	// the target type.
	NegatedTryConvert(source, target reflect.Type, defaultValue any) NegatedTryConvert
}

// builtin is a provider for a Go type T that can be parsed from String8,
// formatted to text and optionally converted from other numeric types.
type builtin[T any] struct {
	name    string
	def     T
	parse   func(string) (T, bool)
	format  func(T) string
	numeric func(any) (T, bool)
}

func (p *builtin[T]) Name() string       { return p.name }
func (p *builtin[T]) Type() reflect.Type { return reflect.TypeOf(p.def) }
func (p *builtin[T]) DefaultValue() any  { return p.def }

func (p *builtin[T]) NegatedTryConvert(source, target reflect.Type, defaultValue any) NegatedTryConvert {
	self := p.Type()

	if target == self {
		def := p.def
		if v, ok := defaultValue.(T); ok {
			def = v
		}
		switch {
		case source == data.TypeString8 && p.parse != nil:
			return func(b data.Batch) (any, []bool) {
				return each(b, def, func(s data.String8) (T, bool) { return p.parse(string(s)) })
			}
		case p.numeric != nil && isNumeric(source):
			return func(b data.Batch) (any, []bool) {
				return eachValue(b, def, p.numeric)
			}
		}
		return nil
	}

	if source == self && p.format != nil {
		switch target {
		case data.TypeString8:
			def, _ := defaultValue.(data.String8)
			return func(b data.Batch) (any, []bool) {
				return each(b, def, func(v T) (data.String8, bool) { return data.Intern(p.format(v)), true })
			}
		case data.TypeString:
			def, _ := defaultValue.(string)
			return func(b data.Batch) (any, []bool) {
				return each(b, def, func(v T) (string, bool) { return p.format(v), true })
			}
		}
	}
	return nil
}

// each converts the logical rows of b with fn.
func each[S, T any](b data.Batch, def T, fn func(S) (T, bool)) (any, []bool) {
	src := b.Array.([]S)
	out := make([]T, b.Count)
	var failed []bool
	for i := 0; i < b.Count; i++ {
		idx := b.Index(i)
		if b.IsNull == nil || !b.IsNull[idx] {
			if v, ok := fn(src[idx]); ok {
				out[i] = v
				continue
			}
		}
		if failed == nil {
			failed = make([]bool, b.Count)
		}
		failed[i] = true
		out[i] = def
	}
	return out, failed
}

// eachValue is each for a source whose element type is only known at run time.
func eachValue[T any](b data.Batch, def T, fn func(any) (T, bool)) (any, []bool) {
	src := reflect.ValueOf(b.Array)
	out := make([]T, b.Count)
	var failed []bool
	for i := 0; i < b.Count; i++ {
		idx := b.Index(i)
		if b.IsNull == nil || !b.IsNull[idx] {
			if v, ok := fn(src.Index(idx).Interface()); ok {
				out[i] = v
				continue
			}
		}
		if failed == nil {
			failed = make([]bool, b.Count)
		}
		failed[i] = true
		out[i] = def
	}
	return out, failed
}

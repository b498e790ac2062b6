package types

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
)

// Converter maps a batch of one type to a batch of another. It never mutates
// the source batch.
type Converter func(source data.Batch) (data.Batch, error)

// ConvertOptions configures the error and default policy of a converter.
type ConvertOptions struct {
	// ErrorOn selects the failures that abort the conversion.
	ErrorOn ValueKinds
	// Default replaces failures selected by ChangeToDefault. It may be of any
	// type convertible to the target. Nil means the target provider default.
	Default any
	// ChangeToDefault selects the rows that receive the default instead of null.
	ChangeToDefault ValueKinds
}

func identity(source data.Batch) (data.Batch, error) { return source, nil }

// GetConverter resolves a converter from source to target honoring opts.
// It fails when no conversion path exists or the options are inconsistent.
func (r *Registry) GetConverter(source, target reflect.Type, opts ConvertOptions) (Converter, error) {
	if opts.Default != nil && opts.ChangeToDefault == None {
		return nil, errors.InvalidInput("default", "a default value requires ChangeToDefault Invalid or InvalidOrNull")
	}
	if source == target {
		return identity, nil
	}

	defaultValue, err := r.defaultFor(target, opts.Default)
	if err != nil {
		return nil, err
	}
	negated := r.negatedTryConvert(source, target, defaultValue)
	if negated == nil {
		return nil, errors.NoConverter(r.TypeName(source), r.TypeName(target))
	}
	return withPolicy(negated, opts, r.TypeName(source)+" to "+r.TypeName(target)), nil
}

// TryGetConverter is GetConverter that reports a missing path as false
// instead of an error.
func (r *Registry) TryGetConverter(source, target reflect.Type, opts ConvertOptions) (Converter, bool, error) {
	c, err := r.GetConverter(source, target, opts)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeNoConverter {
			return nil, false, nil
		}
		return nil, false, err
	}
	return c, true, nil
}

func (r *Registry) defaultFor(target reflect.Type, value any) (any, error) {
	if value == nil {
		if p, ok := r.ForType(target); ok {
			return p.DefaultValue(), nil
		}
		return reflect.Zero(target).Interface(), nil
	}
	converted, err := r.ConvertSingle(value, target)
	if err != nil {
		return nil, errors.InvalidInput("default", fmt.Sprintf("%v is not a valid %s", value, r.TypeName(target)))
	}
	if converted == nil {
		return reflect.Zero(target).Interface(), nil
	}
	return converted, nil
}

// negatedTryConvert asks the target provider, then the source provider, and
// for plain strings composes string to String8 with String8 to target.
func (r *Registry) negatedTryConvert(source, target reflect.Type, defaultValue any) NegatedTryConvert {
	if p, ok := r.ForType(target); ok {
		if fn := p.NegatedTryConvert(source, target, defaultValue); fn != nil {
			return fn
		}
	}
	if p, ok := r.ForType(source); ok {
		if fn := p.NegatedTryConvert(source, target, defaultValue); fn != nil {
			return fn
		}
	}
	if source == data.TypeString && target != data.TypeString8 {
		toString8 := r.negatedTryConvert(source, data.TypeString8, data.String8(""))
		fromString8 := r.negatedTryConvert(data.TypeString8, target, defaultValue)
		if toString8 != nil && fromString8 != nil {
			return compose(toString8, fromString8)
		}
	}
	return nil
}

func compose(first, second NegatedTryConvert) NegatedTryConvert {
	return func(source data.Batch) (any, []bool) {
		intermediate, firstFailed := first(source)
		result, secondFailed := second(data.All(intermediate, source.Count, nil))
		switch {
		case firstFailed == nil:
			return result, secondFailed
		case secondFailed == nil:
			return result, firstFailed
		}
		for i, failed := range firstFailed {
			secondFailed[i] = secondFailed[i] || failed
		}
		return result, secondFailed
	}
}

// withPolicy turns a negated try-convert into a Converter.
//
//	ChangeToDefault None:          failed rows (including source nulls) are null
//	ChangeToDefault Invalid:       failed rows hold the default, source nulls stay null
//	ChangeToDefault InvalidOrNull: every failed or null row holds the default
func withPolicy(negated NegatedTryConvert, opts ConvertOptions, description string) Converter {
	return func(source data.Batch) (data.Batch, error) {
		result, failed := negated(source)
		if failed != nil && opts.ErrorOn != None {
			for i, f := range failed {
				if !f {
					continue
				}
				if opts.ErrorOn == InvalidOrNull || !source.IsNullAt(i) {
					return data.Batch{}, errors.Conversion(description, i)
				}
			}
		}

		switch opts.ChangeToDefault {
		case None:
			return data.All(result, source.Count, failed), nil
		case Invalid:
			return data.All(result, source.Count, data.RemapNulls(source, nil)), nil
		default:
			return data.All(result, source.Count, nil), nil
		}
	}
}

// TryConvertSingle converts one value to target through the batch path. A
// nil value converts to nil. A null result counts as a failure unless the
// input reads as "" or "null" in any case.
func (r *Registry) TryConvertSingle(value any, target reflect.Type) (any, bool) {
	if value == nil {
		return nil, true
	}
	source := reflect.TypeOf(value)
	if source == target {
		return value, true
	}
	convert, err := r.GetConverter(source, target, ConvertOptions{})
	if err != nil {
		return nil, false
	}
	result, err := convert(data.Single(value))
	if err != nil {
		return nil, false
	}
	if result.IsNullAt(0) {
		text := fmt.Sprint(value)
		return nil, text == "" || strings.EqualFold(text, "null")
	}
	return result.Value(0), true
}

// ConvertSingle is TryConvertSingle that returns a conversion error on failure.
func (r *Registry) ConvertSingle(value any, target reflect.Type) (any, error) {
	result, ok := r.TryConvertSingle(value, target)
	if !ok {
		return nil, errors.Conversion(fmt.Sprintf("%v to %s", value, r.TypeName(target)), 0)
	}
	return result, nil
}

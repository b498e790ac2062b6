package types

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/shopspring/decimal"
)

// CompareOperator is a row comparison used by where.
type CompareOperator int

const (
	Equal CompareOperator = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Contains
)

var compareOperatorNames = map[string]CompareOperator{
	"=":        Equal,
	"==":       Equal,
	"!=":       NotEqual,
	"<>":       NotEqual,
	"<":        LessThan,
	"<=":       LessThanOrEqual,
	">":        GreaterThan,
	">=":       GreaterThanOrEqual,
	":":        Contains,
	"contains": Contains,
}

// ParseCompareOperator parses an operator token.
func ParseCompareOperator(s string) (CompareOperator, bool) {
	op, ok := compareOperatorNames[strings.ToLower(s)]
	return op, ok
}

// CompareOperatorNames returns every accepted operator token, sorted.
func CompareOperatorNames() []string {
	return sortedKeys(compareOperatorNames)
}

func (o CompareOperator) String() string {
	switch o {
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	case Contains:
		return ":"
	default:
		return "="
	}
}

// Predicate appends to rows the logical rows of b that match and returns the
// extended slice. Null rows never match.
type Predicate func(b data.Batch, rows []int) []int

// NewPredicate builds a predicate comparing columns of type elem against
// value, which must already be of type elem.
func NewPredicate(op CompareOperator, elem reflect.Type, value any) (Predicate, error) {
	switch v := value.(type) {
	case data.String8:
		return textPredicate(op, v)
	case string:
		return textPredicate(op, v)
	case int32:
		return orderedPredicate(op, v)
	case int64:
		return orderedPredicate(op, v)
	case float64:
		return orderedPredicate(op, v)
	case time.Duration:
		return orderedPredicate(op, v)
	case time.Time:
		return comparePredicate(op, func(x time.Time) int { return x.Compare(v) })
	case decimal.Decimal:
		return comparePredicate(op, func(x decimal.Decimal) int { return x.Cmp(v) })
	case bool:
		if op != Equal && op != NotEqual {
			return nil, unsupported(op, elem)
		}
		return comparePredicate(op, func(x bool) int {
			if x == v {
				return 0
			}
			return 1
		})
	}
	return nil, unsupported(op, elem)
}

func unsupported(op CompareOperator, elem reflect.Type) error {
	return errors.InvalidInput("operator", fmt.Sprintf("%s is not supported for %v", op, elem))
}

func textPredicate[T ~string](op CompareOperator, v T) (Predicate, error) {
	if op == Contains {
		needle := strings.ToLower(string(v))
		return filter(func(x T) bool { return strings.Contains(strings.ToLower(string(x)), needle) }), nil
	}
	return orderedPredicate(op, v)
}

func orderedPredicate[T cmp.Ordered](op CompareOperator, v T) (Predicate, error) {
	return comparePredicate(op, func(x T) int { return cmp.Compare(x, v) })
}

func comparePredicate[T any](op CompareOperator, compare func(T) int) (Predicate, error) {
	var match func(int) bool
	switch op {
	case Equal:
		match = func(c int) bool { return c == 0 }
	case NotEqual:
		match = func(c int) bool { return c != 0 }
	case LessThan:
		match = func(c int) bool { return c < 0 }
	case LessThanOrEqual:
		match = func(c int) bool { return c <= 0 }
	case GreaterThan:
		match = func(c int) bool { return c > 0 }
	case GreaterThanOrEqual:
		match = func(c int) bool { return c >= 0 }
	default:
		var zero T
		return nil, unsupported(op, reflect.TypeOf(zero))
	}
	return filter(func(x T) bool { return match(compare(x)) }), nil
}

func filter[T any](pred func(T) bool) Predicate {
	return func(b data.Batch, rows []int) []int {
		arr := b.Array.([]T)
		for i := 0; i < b.Count; i++ {
			idx := b.Index(i)
			if b.IsNull != nil && b.IsNull[idx] {
				continue
			}
			if pred(arr[idx]) {
				rows = append(rows, i)
			}
		}
		return rows
	}
}

package types

import (
	"math"
	"reflect"

	"github.com/shopspring/decimal"
)

var (
	typeInt32   = reflect.TypeOf(int32(0))
	typeInt64   = reflect.TypeOf(int64(0))
	typeFloat64 = reflect.TypeOf(float64(0))
	typeDecimal = reflect.TypeOf(decimal.Decimal{})
)

func isNumeric(t reflect.Type) bool {
	switch t {
	case typeInt32, typeInt64, typeFloat64, typeDecimal:
		return true
	}
	return false
}

// Numeric conversions flag values that do not fit the target. Fractions are
// truncated toward zero when converting to an integer type.

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case decimal.Decimal:
		i := n.Truncate(0)
		if i.LessThan(decimal.NewFromInt(math.MinInt64)) || i.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return 0, false
		}
		return i.IntPart(), true
	}
	return 0, false
}

func toInt32(v any) (int32, bool) {
	n, ok := toInt64(v)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	}
	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

package types

import (
	"strconv"
	"time"

	"github.com/kbukum/xform/data"
	"github.com/shopspring/decimal"
)

// Built-in type names.
const (
	NameString   = "string"
	NameString8  = "string8"
	NameBool     = "bool"
	NameInt32    = "int32"
	NameInt64    = "int64"
	NameFloat64  = "float64"
	NameDateTime = "datetime"
	NameTimeSpan = "timespan"
	NameDecimal  = "decimal"
)

var builtinAliases = map[string]string{
	"int":    NameInt32,
	"long":   NameInt64,
	"double": NameFloat64,
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseDateTime parses the date and time layouts accepted in data and scripts.
// Times without a zone are UTC.
func ParseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func builtins() []Provider {
	return []Provider{
		&builtin[string]{
			name:   NameString,
			parse:  func(s string) (string, bool) { return s, true },
			format: func(s string) string { return s },
		},
		&builtin[data.String8]{
			name:   NameString8,
			parse:  func(s string) (data.String8, bool) { return data.Intern(s), true },
			format: func(s data.String8) string { return string(s) },
		},
		&builtin[bool]{
			name: NameBool,
			parse: func(s string) (bool, bool) {
				v, err := strconv.ParseBool(s)
				return v, err == nil
			},
			format: strconv.FormatBool,
		},
		&builtin[int32]{
			name: NameInt32,
			parse: func(s string) (int32, bool) {
				v, err := strconv.ParseInt(s, 10, 32)
				return int32(v), err == nil
			},
			format:  func(v int32) string { return strconv.FormatInt(int64(v), 10) },
			numeric: toInt32,
		},
		&builtin[int64]{
			name: NameInt64,
			parse: func(s string) (int64, bool) {
				v, err := strconv.ParseInt(s, 10, 64)
				return v, err == nil
			},
			format:  func(v int64) string { return strconv.FormatInt(v, 10) },
			numeric: toInt64,
		},
		&builtin[float64]{
			name: NameFloat64,
			parse: func(s string) (float64, bool) {
				v, err := strconv.ParseFloat(s, 64)
				return v, err == nil
			},
			format:  func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
			numeric: toFloat64,
		},
		&builtin[time.Time]{
			name:   NameDateTime,
			parse:  ParseDateTime,
			format: func(t time.Time) string { return t.Format(time.RFC3339Nano) },
		},
		&builtin[time.Duration]{
			name:   NameTimeSpan,
			parse:  ParseTimeSpan,
			format: time.Duration.String,
		},
		&builtin[decimal.Decimal]{
			name: NameDecimal,
			def:  decimal.Zero,
			parse: func(s string) (decimal.Decimal, bool) {
				v, err := decimal.NewFromString(s)
				return v, err == nil
			},
			format:  decimal.Decimal.String,
			numeric: toDecimal,
		},
	}
}

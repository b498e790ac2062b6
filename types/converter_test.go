package types

import (
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/shopspring/decimal"
)

// mixed holds a convertible, an unconvertible and a null value.
func mixed() data.Batch {
	return data.All([]data.String8{"1", "x", ""}, 3, []bool{false, false, true})
}

// nullOnly holds a convertible and a null value.
func nullOnly() data.Batch {
	return data.All([]data.String8{"1", ""}, 2, []bool{false, true})
}

func TestConverter_PolicyMatrix(t *testing.T) {
	r := NewBuiltinRegistry()
	kinds := []ValueKinds{None, Invalid, InvalidOrNull}

	wantValues := map[ValueKinds][]int32{
		None:          {1, 0, 0},
		Invalid:       {1, -1, -1},
		InvalidOrNull: {1, -1, -1},
	}
	wantNulls := map[ValueKinds][]bool{
		None:          {false, true, true},
		Invalid:       {false, false, true},
		InvalidOrNull: nil,
	}

	for _, errorOn := range kinds {
		for _, changeToDefault := range kinds {
			t.Run(errorOn.String()+"/"+changeToDefault.String(), func(t *testing.T) {
				opts := ConvertOptions{ErrorOn: errorOn, ChangeToDefault: changeToDefault}
				if changeToDefault != None {
					opts.Default = "-1"
				}
				convert, err := r.GetConverter(data.TypeString8, typeInt32, opts)
				if err != nil {
					t.Fatalf("GetConverter: %v", err)
				}

				got, err := convert(mixed())
				if errorOn != None {
					if !errors.IsAppError(err) {
						t.Fatalf("expected conversion error, got %v", err)
					}
				} else {
					if err != nil {
						t.Fatalf("unexpected error %v", err)
					}
					if !reflect.DeepEqual(got.Array, wantValues[changeToDefault]) {
						t.Errorf("values: got %v want %v", got.Array, wantValues[changeToDefault])
					}
					if !reflect.DeepEqual(got.IsNull, wantNulls[changeToDefault]) {
						t.Errorf("nulls: got %v want %v", got.IsNull, wantNulls[changeToDefault])
					}
				}

				// Only a null fails here: ErrorOn Invalid tolerates it.
				_, err = convert(nullOnly())
				if wantErr := errorOn == InvalidOrNull; (err != nil) != wantErr {
					t.Errorf("null-only batch: wantErr=%v got %v", wantErr, err)
				}
			})
		}
	}
}

func TestConverter_ErrorCodes(t *testing.T) {
	r := NewBuiltinRegistry()
	convert, _ := r.GetConverter(data.TypeString8, typeInt32, ConvertOptions{ErrorOn: Invalid})
	_, err := convert(mixed())
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeConversion || appErr.Details["row"] != 1 {
		t.Fatalf("expected conversion error at row 1, got %v", err)
	}
}

func TestGetConverter_SameTypeIsIdentity(t *testing.T) {
	r := NewBuiltinRegistry()
	src := data.All([]int32{1, 2}, 2, []bool{false, true})
	convert, err := r.GetConverter(typeInt32, typeInt32, ConvertOptions{ErrorOn: InvalidOrNull})
	if err != nil {
		t.Fatal(err)
	}
	got, err := convert(src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, src) {
		t.Errorf("expected the same batch, got %+v", got)
	}
}

func TestGetConverter_DefaultRequiresChangeToDefault(t *testing.T) {
	r := NewBuiltinRegistry()
	_, err := r.GetConverter(data.TypeString8, typeInt32, ConvertOptions{Default: "5"})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}

	_, err = r.GetConverter(data.TypeString8, typeInt32, ConvertOptions{Default: "five", ChangeToDefault: Invalid})
	if err == nil {
		t.Fatal("expected an unconvertible default to fail")
	}
}

func TestGetConverter_NoPath(t *testing.T) {
	r := NewBuiltinRegistry()
	_, err := r.GetConverter(reflect.TypeOf(true), reflect.TypeOf(time.Time{}), ConvertOptions{})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeNoConverter {
		t.Fatalf("expected NO_CONVERTER, got %v", err)
	}

	_, found, err := r.TryGetConverter(reflect.TypeOf(true), reflect.TypeOf(time.Time{}), ConvertOptions{})
	if found || err != nil {
		t.Errorf("TryGetConverter: found=%v err=%v", found, err)
	}
}

func TestGetConverter_Paths(t *testing.T) {
	r := NewBuiltinRegistry()
	tests := []struct {
		name   string
		source data.Batch
		target reflect.Type
		want   any
	}{
		{"string8 to int32 (target provider)", data.All([]data.String8{"42"}, 1, nil), typeInt32, []int32{42}},
		{"int64 to string8 (source provider)", data.All([]int64{-7}, 1, nil), data.TypeString8, []data.String8{"-7"}},
		{"string to int64 (through string8)", data.All([]string{"9"}, 1, nil), typeInt64, []int64{9}},
		{"string to string8", data.All([]string{"a"}, 1, nil), data.TypeString8, []data.String8{"a"}},
		{"string8 to string", data.All([]data.String8{"b"}, 1, nil), data.TypeString, []string{"b"}},
		{"int32 to float64", data.All([]int32{3}, 1, nil), typeFloat64, []float64{3}},
		{"float64 to int32 truncates", data.All([]float64{3.9}, 1, nil), typeInt32, []int32{3}},
		{"string8 to bool", data.All([]data.String8{"true"}, 1, nil), reflect.TypeOf(false), []bool{true}},
		{"string8 to timespan", data.All([]data.String8{"15m"}, 1, nil), reflect.TypeOf(time.Duration(0)), []time.Duration{15 * time.Minute}},
		{"remapped source", data.Select(data.All([]data.String8{"1", "2", "3"}, 3, nil), []int{2, 0}), typeInt32, []int32{3, 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			convert, err := r.GetConverter(reflect.TypeOf(tc.source.Array).Elem(), tc.target, ConvertOptions{})
			if err != nil {
				t.Fatalf("GetConverter: %v", err)
			}
			got, err := convert(tc.source)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got.Array, tc.want) || got.IsNull != nil {
				t.Errorf("got %v (nulls %v), want %v", got.Array, got.IsNull, tc.want)
			}
		})
	}
}

func TestGetConverter_OverflowFlagged(t *testing.T) {
	r := NewBuiltinRegistry()
	convert, _ := r.GetConverter(typeInt64, typeInt32, ConvertOptions{})
	got, _ := convert(data.All([]int64{1, 1 << 40}, 2, nil))
	if !reflect.DeepEqual(got.IsNull, []bool{false, true}) {
		t.Errorf("expected overflow to be null, got %v", got.IsNull)
	}
}

func TestGetConverter_Decimal(t *testing.T) {
	r := NewBuiltinRegistry()
	convert, err := r.GetConverter(data.TypeString8, typeDecimal, ConvertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := convert(data.All([]data.String8{"12.345", "bad"}, 2, nil))
	arr := got.Array.([]decimal.Decimal)
	if !arr[0].Equal(decimal.RequireFromString("12.345")) || !got.IsNullAt(1) {
		t.Errorf("unexpected decimal batch %v %v", arr, got.IsNull)
	}
}

func TestConvertSingle(t *testing.T) {
	r := NewBuiltinRegistry()
	tests := []struct {
		name   string
		value  any
		target reflect.Type
		want   any
		wantOK bool
	}{
		{"nil", nil, typeInt32, nil, true},
		{"same type", int32(4), typeInt32, int32(4), true},
		{"parse", "80", typeInt32, int32(80), true},
		{"empty string is null", "", typeInt32, nil, true},
		{"literal null is null", "null", typeInt32, nil, true},
		{"null ignores case", "NULL", typeInt32, nil, true},
		{"mixed case null", data.String8("Null"), typeInt64, nil, true},
		{"bad value fails", "eighty", typeInt32, nil, false},
		{"no path fails", true, reflect.TypeOf(time.Time{}), nil, false},
		{"number to text", int32(5), data.TypeString8, data.String8("5"), true},
		{"string8 null text", data.String8("null"), typeInt64, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.TryConvertSingle(tc.value, tc.target)
			if ok != tc.wantOK || !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}

	if _, err := r.ConvertSingle("eighty", typeInt32); err == nil {
		t.Error("ConvertSingle should fail for an unconvertible value")
	}
}

type upper struct{}

type shout string

func (upper) Name() string       { return "shout" }
func (upper) Type() reflect.Type { return reflect.TypeOf(shout("")) }
func (upper) DefaultValue() any  { return shout("") }
func (upper) NegatedTryConvert(source, target reflect.Type, _ any) NegatedTryConvert {
	if source != data.TypeString8 || target != reflect.TypeOf(shout("")) {
		return nil
	}
	return func(b data.Batch) (any, []bool) {
		out := make([]shout, b.Count)
		for i := range out {
			out[i] = shout(string(b.Value(i).(data.String8)) + "!")
		}
		return out, nil
	}
}

func TestRegistry_CustomProvider(t *testing.T) {
	r := NewBuiltinRegistry()
	r.Register(upper{})

	p, ok := r.Get("SHOUT")
	if !ok || p.Name() != "shout" {
		t.Fatal("expected case-insensitive lookup")
	}
	convert, err := r.GetConverter(data.TypeString8, p.Type(), ConvertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := convert(data.All([]data.String8{"hi"}, 1, nil))
	if got.Array.([]shout)[0] != "hi!" {
		t.Errorf("unexpected %v", got.Array)
	}
}

func TestRegistry_NamesAndAliases(t *testing.T) {
	r := Default()
	if r != Default() {
		t.Fatal("Default should return the same registry")
	}
	for _, name := range []string{"string", "String8", "INT", "long", "double", "datetime", "timespan", "decimal", "bool"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("expected %q to be registered", name)
		}
	}
	names := r.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	if r.TypeName(typeInt64) != "int64" {
		t.Errorf("unexpected type name %q", r.TypeName(typeInt64))
	}
}

func TestParseValueKinds(t *testing.T) {
	if k, ok := ParseValueKinds("invalidornull"); !ok || k != InvalidOrNull {
		t.Errorf("got %v %v", k, ok)
	}
	if _, ok := ParseValueKinds("sometimes"); ok {
		t.Error("expected unknown kind")
	}
}

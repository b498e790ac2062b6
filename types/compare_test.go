package types

import (
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/xform/data"
)

func TestPredicate_Operators(t *testing.T) {
	ints := data.All([]int32{80, 443, 80, 8080}, 4, []bool{false, false, true, false})
	tests := []struct {
		op   string
		want []int
	}{
		{"=", []int{0}},
		{"!=", []int{1, 3}},
		{"<", []int{}},
		{"<=", []int{0}},
		{">", []int{1, 3}},
		{">=", []int{0, 1, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.op, func(t *testing.T) {
			op, ok := ParseCompareOperator(tc.op)
			if !ok {
				t.Fatalf("operator %q not recognized", tc.op)
			}
			pred, err := NewPredicate(op, typeInt32, int32(80))
			if err != nil {
				t.Fatal(err)
			}
			got := pred(ints, []int{})
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestPredicate_ContainsIsCaseInsensitive(t *testing.T) {
	names := data.All([]data.String8{"WWW.Contoso.com", "fabrikam", "contoso.org"}, 3, nil)
	pred, err := NewPredicate(Contains, data.TypeString8, data.String8("contoso"))
	if err != nil {
		t.Fatal(err)
	}
	if got := pred(names, nil); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("got %v", got)
	}
}

func TestPredicate_RemappedAndTimes(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := data.Select(data.All([]time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)}, 3, nil), []int{2, 0})
	pred, _ := NewPredicate(GreaterThan, reflect.TypeOf(base), base)
	if got := pred(times, nil); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("got %v", got)
	}
}

func TestPredicate_Unsupported(t *testing.T) {
	if _, err := NewPredicate(LessThan, reflect.TypeOf(true), true); err == nil {
		t.Error("ordering booleans should fail")
	}
	if _, err := NewPredicate(Contains, typeInt32, int32(1)); err == nil {
		t.Error("contains on numbers should fail")
	}
}

func TestCompareOperatorNames(t *testing.T) {
	names := CompareOperatorNames()
	if len(names) != len(compareOperatorNames) || names[0] != "!=" {
		t.Errorf("unexpected names %v", names)
	}
	if _, ok := ParseCompareOperator("~"); ok {
		t.Error("~ is not an operator")
	}
}

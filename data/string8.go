package data

import (
	"reflect"
	"unique"
)

// String8 is the engine's canonical text type. Values produced by the engine
// are interned, so repeated text in a column shares one allocation.
type String8 string

// Intern returns the canonical String8 for s.
func Intern(s string) String8 {
	return String8(unique.Make(s).Value())
}

// String returns the value as a Go string.
func (s String8) String() string { return string(s) }

// Well known element types.
var (
	TypeString8 = reflect.TypeOf(String8(""))
	TypeString  = reflect.TypeOf("")
)

package types

import (
	"sort"
	"strings"
)

// ValueKinds selects which rows a conversion policy applies to.
type ValueKinds int

const (
	// None applies to no rows.
	None ValueKinds = iota
	// Invalid applies to non-null rows that could not be converted.
	Invalid
	// InvalidOrNull applies to rows that could not be converted and to null rows.
	InvalidOrNull
)

var valueKindNames = map[string]ValueKinds{
	"none":          None,
	"invalid":       Invalid,
	"invalidornull": InvalidOrNull,
}

func (k ValueKinds) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case InvalidOrNull:
		return "InvalidOrNull"
	default:
		return "None"
	}
}

// ParseValueKinds parses a kind name case-insensitively.
func ParseValueKinds(s string) (ValueKinds, bool) {
	k, ok := valueKindNames[strings.ToLower(s)]
	return k, ok
}

// ValueKindNames returns the accepted kind names, sorted.
func ValueKindNames() []string {
	return []string{"Invalid", "InvalidOrNull", "None"}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

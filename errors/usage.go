package errors

import (
	stderrors "errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// UsageError describes a script token that could not be used where it was
// found. It is raised while a pipeline is compiled and always aborts the build.
type UsageError struct {
	// TableName is the table being built, if known.
	TableName string
	// Line is the 1-based script line of the offending token; 0 when unknown.
	Line int
	// Usage is the usage text of the verb being parsed, if any.
	Usage string
	// InvalidValue is the offending token text; empty when an argument was missing.
	InvalidValue string
	// Category names the kind of value expected; empty for an unexpected trailing argument.
	Category string
	// ValidValues are the sorted valid alternatives, when enumerable.
	ValidValues []string
}

// NewUsageError creates a UsageError without script position. The valid
// values are copied and sorted.
func NewUsageError(invalidValue, category string, validValues []string) *UsageError {
	return &UsageError{
		InvalidValue: invalidValue,
		Category:     category,
		ValidValues:  sortedCopy(validValues),
	}
}

// NewPositionedUsageError creates a UsageError carrying full script context.
func NewPositionedUsageError(table string, line int, usage, invalidValue, category string, validValues []string) *UsageError {
	e := NewUsageError(invalidValue, category, validValues)
	e.TableName = table
	e.Line = line
	e.Usage = usage
	return e
}

// Error renders the multi-line diagnostic.
func (e *UsageError) Error() string {
	var b strings.Builder
	if e.TableName != "" {
		b.WriteString("Table: " + e.TableName + "\n")
	}
	if e.Line > 0 {
		b.WriteString("Line: " + strconv.Itoa(e.Line) + "\n")
	}
	if e.Usage != "" {
		b.WriteString("Usage: " + e.Usage + "\n")
	}

	switch {
	case e.Category == "":
		b.WriteString(`Value "` + e.InvalidValue + `" found when no more arguments were expected.` + "\n")
	case e.InvalidValue == "":
		b.WriteString("No argument found when " + e.Category + " was required.\n")
	default:
		b.WriteString(`"` + e.InvalidValue + `" was not a valid ` + e.Category + ".\n")
	}

	if e.ValidValues != nil {
		b.WriteString("Valid Options:\n")
		for _, v := range e.ValidValues {
			b.WriteString(v + "\n")
		}
	}
	return b.String()
}

// AppError converts the diagnostic into an AppError for API responses.
func (e *UsageError) AppError() *AppError {
	details := map[string]any{
		"category":      e.Category,
		"invalid_value": e.InvalidValue,
	}
	if e.TableName != "" {
		details["table"] = e.TableName
	}
	if e.Line > 0 {
		details["line"] = e.Line
	}
	if e.Usage != "" {
		details["usage"] = e.Usage
	}
	if e.ValidValues != nil {
		details["valid_values"] = e.ValidValues
	}
	return &AppError{
		Code:       ErrCodeUsage,
		Message:    strings.TrimRight(e.Error(), "\n"),
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
		Cause:      e,
	}
}

// IsUsageError checks if an error is a UsageError.
func IsUsageError(err error) bool {
	var u *UsageError
	return stderrors.As(err, &u)
}

// AsUsageError converts an error to a UsageError if possible.
func AsUsageError(err error) (*UsageError, bool) {
	var u *UsageError
	if stderrors.As(err, &u) {
		return u, true
	}
	return nil, false
}

func sortedCopy(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

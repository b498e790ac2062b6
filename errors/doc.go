// Package errors provides the error vocabulary of the xform engine.
//
// Two disjoint families exist. Usage errors (UsageError) are compile-time
// diagnostics produced while a script is parsed: they carry the table name,
// line number, verb usage, offending token, expected category and the valid
// alternatives. Everything else is an AppError with a machine-readable code,
// an HTTP status for the server surface, and an optional cause.
package errors

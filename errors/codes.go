package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Script errors
const (
	// ErrCodeUsage indicates a script could not be compiled into a pipeline.
	ErrCodeUsage ErrorCode = "USAGE_ERROR"
	// ErrCodeInvalidInput indicates an invalid argument to an engine API.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates a table, type or stream was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Execution errors
const (
	// ErrCodeConversion indicates a value failed to convert under an erroring policy.
	ErrCodeConversion ErrorCode = "CONVERSION_FAILED"
	// ErrCodeNoConverter indicates no conversion path exists between two types.
	ErrCodeNoConverter ErrorCode = "NO_CONVERTER"
	// ErrCodeIO indicates a stream could not be read or written.
	ErrCodeIO ErrorCode = "IO_ERROR"
	// ErrCodeInternal indicates an unexpected engine failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeUnavailable indicates every run slot is taken.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeIO:          true,
	ErrCodeUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

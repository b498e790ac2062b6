package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the engine error type for everything that is not a usage error.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, name string) *AppError {
	details := map[string]any{"resource": resource}
	if name != "" {
		details["name"] = name
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q was not found", resource, name),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// InvalidInput creates a new AppError for an invalid argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for configuration or request validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Conversion creates a new AppError for a value that failed to convert while
// the active policy required an error.
func Conversion(context string, row int) *AppError {
	if context == "" {
		context = "conversion"
	}
	return &AppError{
		Code: ErrCodeConversion, Message: fmt.Sprintf("%s failed for at least one value", context),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"row": row},
	}
}

// NoConverter creates a new AppError for a missing conversion path. This is a
// configuration mistake and is raised regardless of error policy.
func NoConverter(source, target string) *AppError {
	return &AppError{
		Code: ErrCodeNoConverter, Message: fmt.Sprintf("no converter available from %s to %s", source, target),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"source": source, "target": target},
	}
}

// IO creates a new AppError for a failed stream operation.
func IO(op, path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeIO, Message: fmt.Sprintf("%s %s failed", op, path),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// Unavailable creates a new AppError for work rejected because the service
// is at capacity.
func Unavailable(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("%s is at capacity", resource),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"resource": resource}, Cause: cause,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected engine error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Wrap converts any error into an AppError. Usage errors keep their
// diagnostic text; AppErrors pass through unchanged.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if usage, ok := AsUsageError(err); ok {
		return usage.AppError()
	}
	return Internal(err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Package errs defines the error-kind taxonomy and the Result envelope
// every service operation in this module returns.
package errs

import "fmt"

// Code is one of the error kinds named in the error-handling design.
type Code string

const (
	Validation            Code = "VALIDATION"
	NotFound              Code = "NOT_FOUND"
	Conflict              Code = "CONFLICT"
	AlreadyLocked         Code = "ALREADY_LOCKED"
	Duplicate             Code = "DUPLICATE"
	InvalidState          Code = "INVALID_STATE"
	Unauthorized          Code = "UNAUTHORIZED"
	Forbidden             Code = "FORBIDDEN"
	NoTenantContext       Code = "NO_TENANT_CONTEXT"
	PoolShutdown          Code = "POOL_SHUTDOWN"
	QueueFull             Code = "QUEUE_FULL"
	Timeout               Code = "TIMEOUT"
	Cancelled             Code = "CANCELLED"
	DependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	Internal              Code = "INTERNAL"
)

// Error is the structured error every public operation fails with.
// Message is safe to surface to a caller; Details may carry
// caller-safe context (e.g. the holder of a lock). Unexpected internal
// failures are wrapped with Internal and a generic Message, while the
// original error is preserved in Cause for logging/error-sink reporting.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no details and no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches caller-safe details to an Error, returning a copy.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap converts an arbitrary internal error into an Error with the given
// code and the given caller-visible message, preserving the original
// error as Cause for the error sink.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WrapInternal wraps an unexpected error as Internal, per the propagation
// policy: the caller-visible message is generic, the code is specific
// enough for dashboards, and the wrapped cause is what gets logged/reported.
func WrapInternal(cause error) *Error {
	return &Error{Code: Internal, Message: "an internal error occurred", Cause: cause}
}

// Of extracts the *Error from err if it is one, or wraps it as Internal.
func Of(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		e = WrapInternal(err)
	}
	return e
}

// Result is the envelope every service operation returns: either Data or
// Err is populated, never both nor neither (for a successful void
// operation, Data is the zero value of T and Err is nil).
type Result[T any] struct {
	Data T
	Err  *Error
}

// Ok builds a successful Result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

// Fail builds a failed Result.
func Fail[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// IsOk reports whether the result carries no error.
func (r Result[T]) IsOk() bool { return r.Err == nil }

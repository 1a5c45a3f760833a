package errdefs

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is the coarse error classification shared across all boundaries.
// Every error that crosses a package boundary carries exactly one Code.
type Code string

const (
	CodeInvalidArgument Code = "InvalidArgument"
	CodeNotFound        Code = "NotFound"
	CodeUnavailable     Code = "Unavailable"
	CodeConflict        Code = "Conflict"
	CodeInternal        Code = "Internal"
)

// Error is a classified error. The wrapped cause, if any, is reachable
// through errors.Unwrap for logging; callers branch on the Code only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a classified error without a cause.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(CodeInvalidArgument, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}

func Unavailable(err error, format string, args ...interface{}) *Error {
	return Wrap(CodeUnavailable, err, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(CodeConflict, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return Wrap(CodeInternal, err, format, args...)
}

// CodeOf extracts the classification of err. Unclassified errors are
// reported as Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsUnavailable reports whether err is an Unavailable error. Unavailable
// errors are the only class callers retry.
func IsUnavailable(err error) bool { return CodeOf(err) == CodeUnavailable }

// GRPCStatus translates a classified error into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch CodeOf(err) {
	case CodeInvalidArgument:
		code = codes.InvalidArgument
	case CodeNotFound:
		code = codes.NotFound
	case CodeUnavailable:
		code = codes.Unavailable
	case CodeConflict:
		code = codes.Aborted
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// HTTPStatus translates a classified error into an HTTP status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

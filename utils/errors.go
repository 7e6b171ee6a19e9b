package utils

import (
	"errors"
	"fmt"
)

// Code classifies an AppError for callers and transports.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeBackendFailed      Code = "BACKEND_FAILED"
	CodeNotFound           Code = "NOT_FOUND"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
)

type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError carrying the same code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Cause == nil && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// ErrAuthenticationRequired is returned when an operation needs an acting identity and none is present.
var ErrAuthenticationRequired = &AppError{Code: CodeUnauthenticated, Message: "authentication required"}

func NewError(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func WrapError(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// BackendFailed wraps a persistence or broker failure.
func BackendFailed(op string, cause error) error {
	return WrapError(CodeBackendFailed, op, cause)
}

func NotFound(msg string) error {
	return NewError(CodeNotFound, msg)
}

func Forbidden(msg string) error {
	return NewError(CodePermissionDenied, msg)
}

func InvalidArgument(msg string) error {
	return NewError(CodeInvalidArgument, msg)
}

func FailedPrecondition(msg string) error {
	return NewError(CodeFailedPrecondition, msg)
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies application errors. Stream-level codes
// (CodeFrameTimeout, CodeInternal) surface verbatim on the wire
// as `error` events.
type ErrorCode string

const (
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeNotFound       ErrorCode = "not_found"
	CodeFrameTimeout   ErrorCode = "frame_timeout"
	CodeInternal       ErrorCode = "internal_error"
	CodeProviderFailed ErrorCode = "provider_error"
	CodeToolFailed     ErrorCode = "tool_error"
)

// AppError is an error carrying a wire-safe code.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError with a cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the ErrorCode from err, or CodeInternal when err
// carries no AppError in its chain.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsFrameTimeout reports whether err is a frame-silence expiry.
func IsFrameTimeout(err error) bool {
	return CodeOf(err) == CodeFrameTimeout
}

package tryon

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Code is the machine readable discriminant of a try-on failure.
type Code string

const (
	CodeFileTooLarge    Code = "FILE_TOO_LARGE"
	CodeInvalidFileType Code = "INVALID_FILE_TYPE"
	CodeImageLoad       Code = "IMAGE_LOAD_ERROR"
	CodeCanvas          Code = "CANVAS_ERROR"
	CodeAuth            Code = "AUTH_ERROR"
	CodeAuthRequired    Code = "AUTH_REQUIRED"
	CodeNetwork         Code = "NETWORK_ERROR"
	CodeRateLimit       Code = "RATE_LIMIT"
	CodeAPI             Code = "API_ERROR"
	CodeInvalidRequest  Code = "INVALID_REQUEST"
	CodeInvalidResponse Code = "INVALID_RESPONSE"
	CodeNoImageResult   Code = "NO_IMAGE_RESULT"
	CodeProcessFailed   Code = "PROCESS_FAILED"
	CodeTimeout         Code = "TIMEOUT"
	CodeUpload          Code = "UPLOAD_ERROR"
	CodeDatabase        Code = "DATABASE_ERROR"
	CodeUnknown         Code = "UNKNOWN_ERROR"
)

// Error is the single error type returned by the try-on pipeline.
type Error struct {
	Code    Code
	Message string

	// StatusCode is the HTTP status returned by the synthesis API, 0 when no response was involved.
	StatusCode int
	// Detail carries structured context such as the remote job status or the offending image.
	Detail string
	// Stack is captured for CodeUnknown only.
	Stack []byte

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: CodeTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError builds an *Error with the given code and message, wrapping cause when non-nil.
func NewError(code Code, message string, cause error) *Error {
	e := &Error{Code: code, Message: message, Err: cause}
	if code == CodeUnknown {
		e.Stack = debug.Stack()
	}
	return e
}

// CodeOf returns the code of err, CodeUnknown for foreign errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// AsError converts any error into an *Error, wrapping foreign errors as CodeUnknown.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return NewError(CodeUnknown, err.Error(), err)
}

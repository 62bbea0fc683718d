// Package errs tags failures of session, storage state and debug proxy
// operations with a Code. The HTTP layer turns the code into a status and
// shows clients the tagged message; anything untagged stays in the logs.
package errs

import (
	"errors"
	"net/http"
)

// Code classifies a failure.
type Code string

const (
	InvalidArgument    Code = "invalid_argument"
	NotFound           Code = "not_found"
	FailedPrecondition Code = "failed_precondition"
	ResourceExhausted  Code = "resource_exhausted"
	Unavailable        Code = "unavailable"
	Internal           Code = "internal"
)

var statuses = map[Code]int{
	InvalidArgument:    http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	FailedPrecondition: http.StatusConflict,
	ResourceExhausted:  http.StatusTooManyRequests,
	Unavailable:        http.StatusServiceUnavailable,
	Internal:           http.StatusInternalServerError,
}

// Error carries a code, the client-facing message and the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil && e.Message == "":
		return string(e.Code)
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap tags cause. The cause is logged but never shown to clients.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

func coded(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost tagged error, or Internal.
func CodeOf(err error) Code {
	if e, ok := coded(err); ok && e.Code != "" {
		return e.Code
	}
	return Internal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the tagged message, or "internal error" so driver output
// and file paths never reach clients.
func MessageOf(err error) string {
	if e, ok := coded(err); ok && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to a status; unknown codes are 500.
func HTTPStatus(code Code) int {
	if status, ok := statuses[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Reply returns the status and message an HTTP handler should answer with.
func Reply(err error) (int, string) {
	return HTTPStatus(CodeOf(err)), MessageOf(err)
}

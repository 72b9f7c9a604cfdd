// Package errors provides the structured error type shared by the gateway,
// hub and ingest services
package errors

// Import as perr to keep the standard library errors package available

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures; values are stable for logs and wire payloads
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified internal faults
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeValidation is for malformed or missing required input
	ErrorCodeValidation

	// ErrorCodeConnection is for a broker connection or channel that is unavailable
	ErrorCodeConnection

	// ErrorCodePublish is for a publish attempted against a closed or failing channel
	ErrorCodePublish

	// ErrorCodeFanout is for a failed delivery to one live connection (never surfaced to callers)
	ErrorCodeFanout

	// ErrorCodeCanceled is for operations aborted by context cancellation or deadline
	ErrorCodeCanceled

	// ErrorCodeUnavailable is for transient conditions where a retry may succeed
	ErrorCodeUnavailable
)

// String returns the lowercase code name used in logs
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeValidation:
		return "validation"
	case ErrorCodeConnection:
		return "connection"
	case ErrorCodePublish:
		return "publish"
	case ErrorCodeFanout:
		return "fanout"
	case ErrorCodeCanceled:
		return "canceled"
	case ErrorCodeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeConnection, ErrorCodePublish, ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error type
// msg is developer facing, code is machine facing, op names the failing operation
type Error struct {
	orig error
	msg  string
	code ErrorCode
	op   string
}

// Wire is the JSON form returned by handlers
type Wire struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Message returns the message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// ToWire converts an *Error to its wire form
func (e *Error) ToWire() Wire { return Wire{Code: e.code.String(), Message: e.msg} }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf extracts the outermost ErrorCode, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether the outermost *Error in err has the given code
func IsCode(err error, code ErrorCode) bool { return err != nil && CodeOf(err) == code }

// HasCode reports whether any *Error in the wrap chain carries code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.code == code {
			return true
		}
		err = stderrs.Unwrap(err)
	}
	return false
}

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// WireFrom converts any error to a wire payload
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown.String(), Message: err.Error()}
}

// HTTP bundles status and wire payload for handlers
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// WithOp attaches an operation label (copy-on-write). Foreign errors are returned unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Validationf returns a validation error
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// Connectionf returns a connection error
func Connectionf(format string, a ...any) error { return Newf(ErrorCodeConnection, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// FromContext maps a context error to a Canceled *Error, or returns nil
func FromContext(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{code: ErrorCodeCanceled, msg: op + " canceled", orig: err, op: op}
}

// Package errs defines the single error type every request-path failure
// is expressed as, so the HTTP layer can map it to a status code without
// inspecting error strings.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// RequestError is a classified, user-facing failure. Kind names the
// failure family; Status is the HTTP status it maps to.
type RequestError struct {
	Kind    string
	Status  int
	Message string
	cause   error
}

func (e *RequestError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *RequestError) Unwrap() error { return e.cause }

// As reports whether err is (or wraps) a *RequestError and, if so,
// returns it.
func As(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// InvalidUsage reports a malformed or self-contradictory query, e.g.
// mixing "male" and "female" in one face_tag atom.
func InvalidUsage(format string, args ...interface{}) *RequestError {
	return &RequestError{Kind: "invalid_usage", Status: 400, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a reference to an unknown entity: a person name, a
// tag, a video id.
func NotFound(format string, args ...interface{}) *RequestError {
	return &RequestError{Kind: "not_found", Status: 404, Message: fmt.Sprintf(format, args...)}
}

// ExpensiveQuery reports a transcript search rejected by the cost gate.
func ExpensiveQuery(format string, args ...interface{}) *RequestError {
	return &RequestError{Kind: "expensive_query", Status: 400, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure (I/O, decode error) that is not
// the caller's fault.
func Internal(cause error, format string, args ...interface{}) *RequestError {
	return &RequestError{Kind: "internal", Status: 500, Message: fmt.Sprintf(format, args...), cause: cause}
}

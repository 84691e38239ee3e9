// Package apierr defines the REST/WS error taxonomy shared by the API and
// bridge processes, so handlers can map a failure to the right status code
// with errors.As instead of string-matching messages.
package apierr

import "fmt"

// Kind classifies an error for HTTP/WS status mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindRate       Kind = "rate"
	KindTransient  Kind = "transient"
	KindFatal      Kind = "fatal"
)

// Error is the typed error surfaced at the API/bridge boundary.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
	Code    string // machine-readable code, e.g. "AUTH_EXPIRED"
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a 400-class error with a per-field detail map.
func Validation(msg string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// NotFound builds a 404-class error naming the missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// Conflict builds a 409-class error for a uniqueness violation.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Auth builds an auth-class error, tagged with a machine-readable code.
func Auth(code, msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg, Code: code}
}

// Rate builds a 429-class error.
func Rate(msg string) *Error {
	return &Error{Kind: KindRate, Message: msg}
}

// Transient builds a 500-class error wrapping a downstream failure.
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// Fatal builds a 503-class error for an unreachable database.
func Fatal(msg string, err error) *Error {
	return &Error{Kind: KindFatal, Message: msg, Err: err}
}

// StatusCode maps a Kind to its corresponding HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindAuth:
		return 401
	case KindRate:
		return 429
	case KindTransient:
		return 500
	case KindFatal:
		return 503
	default:
		return 500
	}
}

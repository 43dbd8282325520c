package models

import "fmt"

// ErrorKind classifies conversion failures. Every kind maps to HTTP 400.
type ErrorKind string

const (
	// InvalidBody means the request body was not a JSON object.
	InvalidBody ErrorKind = "invalid_body"
	// InvalidSchema means neither contentBytes nor Content/Name was present.
	InvalidSchema ErrorKind = "invalid_schema"
	// InvalidBase64 means the payload could not be base64-decoded.
	InvalidBase64 ErrorKind = "invalid_base64"
	// ConversionFailed means the format-specific converter returned an error.
	ConversionFailed ErrorKind = "conversion_failed"
)

// Error is a conversion failure carrying the detail text returned to the caller.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns an Error of the given kind.
func NewError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Message is the detail text returned to API clients. Only conversion failures
// expose the underlying error.
func (e *Error) Message() string {
	if e.Kind == ConversionFailed && e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

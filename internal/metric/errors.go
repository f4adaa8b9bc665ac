package metric

import (
	"errors"
	"fmt"
)

// Code identifies an error class with a stable machine-readable value.
type Code string

const (
	CodeMissingField        Code = "missing_field"
	CodeOutOfRange          Code = "out_of_range"
	CodeInvalidRelation     Code = "invalid_relation"
	CodeInvalidSubtype      Code = "invalid_subtype"
	CodeMalformedTimestamp  Code = "malformed_timestamp"
	CodeMalformedIdentifier Code = "malformed_identifier"
	CodeNotFound            Code = "not_found"
	CodeStorageUnavailable  Code = "storage_unavailable"
	CodeUnauthenticated     Code = "unauthenticated"
)

// Error is the tagged result type returned by the engine. Callers branch on
// Code; Message is safe to show to the user.
type Error struct {
	Code    Code    `json:"code"`
	Field   Field   `json:"field,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Message string  `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrNotFound covers both "no such record" and "record owned by someone
// else". The two cases are intentionally indistinguishable.
var ErrNotFound = &Error{Code: CodeNotFound, Message: "record not found"}

// ErrUnauthenticated is returned before any field validation when the caller
// carries no valid identity.
var ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "authentication required"}

func ErrMissingField(f Field) *Error {
	return &Error{Code: CodeMissingField, Field: f, Message: "required field is missing"}
}

func ErrOutOfRange(f Field, value float64, b Bounds) *Error {
	return &Error{
		Code:    CodeOutOfRange,
		Field:   f,
		Value:   value,
		Min:     b.Min,
		Max:     b.Max,
		Message: fmt.Sprintf("value %g is outside [%g, %g]", value, b.Min, b.Max),
	}
}

func ErrInvalidRelation(msg string) *Error {
	return &Error{Code: CodeInvalidRelation, Message: msg}
}

func ErrInvalidSubtype(s Subtype) *Error {
	return &Error{Code: CodeInvalidSubtype, Message: fmt.Sprintf("unknown subtype %q", s)}
}

func ErrMalformedTimestamp(raw string) *Error {
	return &Error{Code: CodeMalformedTimestamp, Message: fmt.Sprintf("cannot parse timestamp %q, expected YYYY-MM-DDTHH:MM", raw)}
}

// ErrStorage wraps a storage failure; the cause is logged, never surfaced.
func ErrStorage(err error) *Error {
	return &Error{Code: CodeStorageUnavailable, Message: "storage unavailable"}
}

// CodeOf extracts the error code, defaulting to storage_unavailable for
// anything the engine did not produce itself.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorageUnavailable
}

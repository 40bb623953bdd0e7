package claims

import (
	"fmt"

	"github.com/kentandrian/vertexai-demos/internal/document"
)

// Document-level input errors, raised before any model call.
var (
	ErrEmptyDocument        = document.ErrEmpty
	ErrUnsupportedMediaType = document.ErrUnsupportedType
)

// ParseErrorKind names why a Stage-1 reply was rejected.
type ParseErrorKind string

const (
	ParseInvalidJSON  ParseErrorKind = "invalid_json"
	ParseNotObject    ParseErrorKind = "not_object"
	ParseMissingField ParseErrorKind = "missing_field"
	ParseInvalidField ParseErrorKind = "invalid_field"
)

// ParseError reports a Stage-1 reply that is not a valid extraction.
// Raw holds the reply text as received.
type ParseError struct {
	Kind  ParseErrorKind
	Field string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	msg := "parse extraction: " + string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package parser

import (
	"errors"
	"fmt"
)

// ParseError reports a document that is not a usable Swagger/OpenAPI
// description: malformed JSON or YAML, an unknown shape, or a missing
// required top-level key.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse spec: %s: %v", e.Reason, e.Err)
	}
	return "parse spec: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

package storage

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned when the input exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// ParseError reports content that is not valid delimited tabular data.
type ParseError struct {
	Line int // 1-based line in the decoded file, 0 when unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed CSV at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed CSV: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a mandatory column missing from the header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q is missing", e.Column)
}

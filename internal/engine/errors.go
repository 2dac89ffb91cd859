package engine

import "errors"

var (
	// ErrNoData means neither an uploaded file nor the sample dataset produced rows.
	ErrNoData = errors.New("no data available")

	// ErrInvalidQuery wraps NanoQL syntax errors in a selection.
	ErrInvalidQuery = errors.New("invalid query")
)

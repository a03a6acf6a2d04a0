package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
// Every failure of a conversion is terminal and falls in one of three
// categories. Callers classify with errors.As or ErrorKind.

// InvalidInputError reports a missing, empty or unreadable input.
type InvalidInputError struct {
	// Input names the offending input ("input", "reference", a file name).
	Input string

	// Reason is a human-readable explanation.
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Input, e.Reason)
}

// ParseError reports malformed tabular data.
type ParseError struct {
	// Input names the file being parsed.
	Input string

	// Line is the 1-based line (or sheet row) where parsing failed.
	// Zero when unknown.
	Line int

	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse %s at line %d: %v", e.Input, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports mapped source columns that the input lacks.
type SchemaMismatchError struct {
	// Missing lists the absent columns in mapping order. Never empty.
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("source is missing mapped column %q", e.Missing[0])
	}
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf("source is missing mapped columns %s", strings.Join(quoted, ", "))
}

// Column returns the first missing column.
func (e *SchemaMismatchError) Column() string {
	return e.Missing[0]
}

// Error kinds returned by ErrorKind.
const (
	KindInvalidInput   = "invalid_input"
	KindParse          = "parse"
	KindSchemaMismatch = "schema_mismatch"
	KindInternal       = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var invalid *InvalidInputError
	var parse *ParseError
	var mismatch *SchemaMismatchError
	switch {
	case errors.As(err, &invalid):
		return KindInvalidInput
	case errors.As(err, &parse):
		return KindParse
	case errors.As(err, &mismatch):
		return KindSchemaMismatch
	default:
		return KindInternal
	}
}

// =============================================================================
// Contact Formatter - Validation Engine
// =============================================================================
//
// This module validates the structures the converter depends on. It does not
// judge contact data itself (an empty email is still a valid cell).
//
// VALIDATION LEVELS:
//   1. Mapping-level: The column mapping table must be well formed
//      (non-empty names, no duplicate sources, no duplicate targets).
//   2. Output-level: A transformed record set must have exactly the target
//      columns in order and one row per input row.
//
// ERROR HANDLING:
//   - Mapping errors are collected, not returned one at a time
//   - Each error includes the offending entry and value
//   - Output verification fails fast with a single error
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity indicates the severity of the error.
	// "error" = fatal, the configuration cannot be used
	// "warning" = non-fatal, reported only
	Severity string

	// Entry is the 1-based position of the mapping entry, or 0 when the
	// error is not tied to one entry.
	Entry int

	// Field names what was checked ("source", "target", a column name).
	Field string

	// Value is the offending value.
	Value string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Entry > 0 {
		return fmt.Sprintf("[%s] entry %d, %s: %s (value: '%s')",
			strings.ToUpper(e.Severity), e.Entry, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("[%s] %s: %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// =============================================================================
// MAPPING VALIDATION
// =============================================================================

// ValidateMapping checks a column mapping table.
//
// PARAMETERS:
//   - mapping: The mapping to check.
//
// RETURNS:
//   - All problems found, in entry order. Empty when the mapping is usable.
func ValidateMapping(mapping types.ColumnMapping) []*ValidationError {
	var errs []*ValidationError

	if len(mapping) == 0 {
		return append(errs, &ValidationError{
			Severity: SeverityError,
			Field:    "column_mapping",
			Message:  "mapping has no entries",
		})
	}

	seenSource := make(map[string]int, len(mapping))
	seenTarget := make(map[string]int, len(mapping))

	for i, entry := range mapping {
		pos := i + 1

		if strings.TrimSpace(entry.Source) == "" {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Entry:    pos,
				Field:    "source",
				Value:    entry.Source,
				Message:  "source column name is empty",
			})
		} else if first, dup := seenSource[entry.Source]; dup {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Entry:    pos,
				Field:    "source",
				Value:    entry.Source,
				Message:  fmt.Sprintf("source column already mapped by entry %d", first),
			})
		} else {
			seenSource[entry.Source] = pos
		}

		if strings.TrimSpace(entry.Target) == "" {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Entry:    pos,
				Field:    "target",
				Value:    entry.Target,
				Message:  "target column name is empty",
			})
		} else if first, dup := seenTarget[entry.Target]; dup {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Entry:    pos,
				Field:    "target",
				Value:    entry.Target,
				Message:  fmt.Sprintf("target column already produced by entry %d", first),
			})
		} else {
			seenTarget[entry.Target] = pos
		}
	}

	return errs
}

// CheckReference reports mapping targets that the reference layout does not
// contain. Those columns are produced and then dropped, which is legal but
// usually a sign of a mismatched reference file, so they are warnings.
func CheckReference(mapping types.ColumnMapping, targetColumns []string) []*ValidationError {
	target := types.NewColumnSet(targetColumns...)
	var warnings []*ValidationError
	for i, entry := range mapping {
		if !target.Has(entry.Target) {
			warnings = append(warnings, &ValidationError{
				Severity: SeverityWarning,
				Entry:    i + 1,
				Field:    "target",
				Value:    entry.Target,
				Message:  "reference layout has no such column; values will be dropped",
			})
		}
	}
	return warnings
}

// =============================================================================
// OUTPUT VERIFICATION
// =============================================================================

// VerifyOutput checks the guarantees of a transformation result.
//
// PARAMETERS:
//   - out: The transformed record set.
//   - targetColumns: The required output columns, in order.
//   - inputRows: The number of rows in the source record set.
//
// RETURNS:
//   - nil if the output has exactly targetColumns in order and inputRows rows
//     of the right width, otherwise a descriptive error.
func VerifyOutput(out *types.RecordSet, targetColumns []string, inputRows int) error {
	if out == nil {
		return fmt.Errorf("output record set is nil")
	}

	got := out.Columns.Names()
	if len(got) != len(targetColumns) {
		return fmt.Errorf("output has %d columns, want %d", len(got), len(targetColumns))
	}
	for i := range got {
		if got[i] != targetColumns[i] {
			return fmt.Errorf("output column %d is %q, want %q", i+1, got[i], targetColumns[i])
		}
	}

	if out.Len() != inputRows {
		return fmt.Errorf("output has %d rows, want %d", out.Len(), inputRows)
	}
	for i, row := range out.Rows {
		if len(row) != len(targetColumns) {
			return fmt.Errorf("output row %d has %d cells, want %d", i+1, len(row), len(targetColumns))
		}
	}

	return nil
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors joins validation errors into a single message.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	parts := make([]string, len(errors))
	for i, e := range errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether any entry has error severity.
func HasErrors(errors []*ValidationError) bool {
	for _, e := range errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

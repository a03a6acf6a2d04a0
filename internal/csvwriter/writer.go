// =============================================================================
// Contact Formatter - CSV Writer Module
// =============================================================================
//
// This module serializes a record set as the downloadable CSV:
//   - UTF-8, comma separated, "\n" line endings
//   - Header row = column names in record set order
//   - Standard quoting for values containing commas, quotes or newlines
//
// =============================================================================

package csvwriter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// ContentType is the MIME type of the CSV output.
const ContentType = "text/csv; charset=utf-8"

// Write serializes rs to w.
//
// PARAMETERS:
//   - w: The destination.
//   - rs: The record set to write.
//
// RETURNS:
//   - An error if writing fails.
func Write(w io.Writer, rs *types.RecordSet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(rs.Columns.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rs.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Marshal returns the CSV bytes for rs.
func Marshal(rs *types.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Contact Formatter - XLSX Reader and Writer
// =============================================================================
//
// Spreadsheet exports are the other common shape of a contact list. This
// module reads the first sheet of a workbook into a record set, using the
// same header rules as the CSV parser, and writes a record set out as a
// single-sheet workbook.
//
// SHEET LAYOUT:
//   | Column A   | Column B  | Column C | ...
//   |------------|-----------|----------|
//   | First Name | Last Name | Email 1  |      <- header row (row 1)
//   | Jane       | Doe       | j@x.com  |      <- data rows
//
//   Every cell is read as its formatted text. Fully empty rows are skipped.
//
// =============================================================================

package xlsx

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/contact-formatter/internal/csvparser"
	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// DefaultSheetName is the sheet written by Write when none is given.
const DefaultSheetName = "Contacts"

// ContentType is the MIME type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// zipMagic starts every XLSX file (they are ZIP archives).
var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether data looks like an XLSX workbook.
func IsWorkbook(name string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// Read parses the first sheet of a workbook into a record set.
//
// PARAMETERS:
//   - r: The workbook content.
//   - name: A display name for error messages.
//
// RETURNS:
//   - The parsed record set, with at least one data row.
//   - An InvalidInputError if the workbook has no sheet, header or data.
//   - A ParseError if the file is not a workbook or a row is wider than
//     the header.
func Read(r io.Reader, name string) (*types.RecordSet, error) {
	rows, err := readRows(r, name)
	if err != nil {
		return nil, err
	}

	header, err := csvparser.CleanHeaders(rows[0], name)
	if err != nil {
		return nil, err
	}

	rs := &types.RecordSet{
		Columns: types.NewColumnSet(header...),
		Source:  name,
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]

		if isRowEmpty(row) {
			continue
		}

		if len(row) > len(header) {
			return nil, &types.ParseError{
				Input: name,
				Line:  i + 1,
				Err:   fmt.Errorf("row has %d cells, header has %d", len(row), len(header)),
			}
		}

		// Trailing empty cells are not returned by excelize.
		cells := make([]string, len(header))
		copy(cells, row)
		rs.Rows = append(rs.Rows, cells)
	}

	if rs.Len() == 0 {
		return nil, &types.InvalidInputError{Input: name, Reason: "sheet has a header but no data rows"}
	}

	return rs, nil
}

// ReadHeader returns only the header row of the first sheet.
func ReadHeader(r io.Reader, name string) ([]string, error) {
	rows, err := readRows(r, name)
	if err != nil {
		return nil, err
	}
	return csvparser.CleanHeaders(rows[0], name)
}

// readRows opens the workbook and returns the rows of its first sheet. The
// result always has a non-empty header row.
func readRows(r io.Reader, name string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &types.ParseError{Input: name, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &types.InvalidInputError{Input: name, Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &types.ParseError{Input: name, Err: fmt.Errorf("failed to read rows: %w", err)}
	}

	if len(rows) == 0 || isRowEmpty(rows[0]) {
		return nil, &types.InvalidInputError{Input: name, Reason: "sheet is empty"}
	}

	return rows, nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write serializes a record set as a workbook with a single sheet.
//
// PARAMETERS:
//   - w: The destination.
//   - rs: The record set to write. The header goes to row 1.
//   - sheet: The sheet name, or "" for DefaultSheetName.
//
// RETURNS:
//   - An error if the workbook cannot be built or written.
func Write(w io.Writer, rs *types.RecordSet, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeRow(f, sheet, 1, rs.Columns.Names()); err != nil {
		return err
	}
	for i, row := range rs.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Marshal returns the workbook bytes for a record set.
func Marshal(rs *types.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rs, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeRow writes cells as strings starting at column A of rowNum.
func writeRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	values := make([]interface{}, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

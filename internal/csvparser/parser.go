// =============================================================================
// Contact Formatter - CSV Parser Module
// =============================================================================
//
// This module parses uploaded contact files and reference layout files into
// record sets. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Different encodings (any WHATWG label, e.g. windows-1252)
//   - Byte order marks written by spreadsheet exports
//   - Quoted fields with embedded delimiters and newlines
//
// STRICTNESS:
//   The first record is the header and fixes the row width. A data row with a
//   different number of fields, or a stray quote, is a ParseError carrying the
//   line number. An empty file is an InvalidInputError.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/contact-formatter/internal/config"
	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a whole CSV document into a record set.
//
// PARAMETERS:
//   - r: The CSV content.
//   - name: A display name for error messages (file or upload name).
//   - settings: The CSV parsing settings from the configuration.
//
// RETURNS:
//   - The parsed record set, with at least one data row.
//   - An InvalidInputError if the document is empty or has no data rows.
//   - A ParseError if the document is malformed.
//
// PARSING PROCESS:
//   1. Decode the input to UTF-8, dropping any byte order mark
//   2. Configure the CSV reader with the delimiter
//   3. Read and clean the header row
//   4. Read data rows, enforcing the header width
func Parse(r io.Reader, name string, settings config.CSVSettings) (*types.RecordSet, error) {
	reader, err := newReader(r, settings)
	if err != nil {
		return nil, err
	}

	header, err := readHeader(reader, name)
	if err != nil {
		return nil, err
	}

	rs := &types.RecordSet{
		Columns: types.NewColumnSet(header...),
		Source:  name,
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newParseError(name, err)
		}

		if settings.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}

		rs.Rows = append(rs.Rows, record)
	}

	if rs.Len() == 0 {
		return nil, &types.InvalidInputError{Input: name, Reason: "file has a header but no data rows"}
	}

	return rs, nil
}

// ParseHeader reads only the header row of a CSV document. The rest of the
// document is never read, so malformed data rows in a reference file do not
// matter.
//
// RETURNS:
//   - The cleaned column names, in order.
//   - An InvalidInputError if the document is empty.
//   - A ParseError if the header row is malformed.
func ParseHeader(r io.Reader, name string, settings config.CSVSettings) ([]string, error) {
	reader, err := newReader(r, settings)
	if err != nil {
		return nil, err
	}
	return readHeader(reader, name)
}

// newReader builds a csv.Reader over the decoded input.
func newReader(r io.Reader, settings config.CSVSettings) (*csv.Reader, error) {
	comma, err := config.DelimiterRune(settings.Delimiter)
	if err != nil {
		return nil, err
	}

	decoded, err := decode(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(decoded))
	reader.Comma = comma

	// The header row fixes the width of every following row.
	reader.FieldsPerRecord = 0

	return reader, nil
}

// decode wraps r so that it yields UTF-8. A UTF-8 or UTF-16 byte order mark
// overrides the configured encoding and is removed.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// readHeader reads the first record and validates it as a header.
func readHeader(reader *csv.Reader, name string) ([]string, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, &types.InvalidInputError{Input: name, Reason: "file is empty"}
	}
	if err != nil {
		return nil, newParseError(name, err)
	}
	return CleanHeaders(header, name)
}

// =============================================================================
// HEADER HANDLING
// =============================================================================

// CleanHeaders trims header names, names blank headers by position
// (Column_N) and rejects duplicates.
//
// PARAMETERS:
//   - headers: The raw header values.
//   - name: A display name for error messages.
//
// RETURNS:
//   - Cleaned header values.
//   - A ParseError if two columns share a name.
func CleanHeaders(headers []string, name string) ([]string, error) {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		if first, dup := seen[header]; dup {
			return nil, &types.ParseError{
				Input: name,
				Line:  1,
				Err:   fmt.Errorf("duplicate column %q (columns %d and %d)", header, first, i+1),
			}
		}
		seen[header] = i + 1

		cleaned[i] = header
	}

	return cleaned, nil
}

// newParseError converts an encoding/csv error into a ParseError.
func newParseError(name string, err error) error {
	pe := &types.ParseError{Input: name, Err: err}
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
		pe.Err = csvErr.Err
	}
	return pe
}

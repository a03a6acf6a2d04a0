// =============================================================================
// Contact Formatter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsx   (produce record sets)
//   - converter          (transforms record sets)
//   - validation         (checks mappings and output)
//   - csvwriter          (serializes record sets)
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// COLUMN SET
// =============================================================================

// ColumnSet is an ordered set of column names. Iteration order is insertion
// order, so anything derived from it (notes text, output headers) is
// deterministic.
type ColumnSet struct {
	names []string
	index map[string]int
}

// NewColumnSet builds a set from names, keeping the first occurrence of
// any duplicate.
func NewColumnSet(names ...string) *ColumnSet {
	s := &ColumnSet{index: make(map[string]int, len(names))}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add appends name if it is not already present. It reports whether the
// set changed.
func (s *ColumnSet) Add(name string) bool {
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	return true
}

// Has reports whether name is in the set.
func (s *ColumnSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (s *ColumnSet) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of columns.
func (s *ColumnSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the column names in order.
func (s *ColumnSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Difference returns the columns of s that are not in other, in the order
// they appear in s.
func (s *ColumnSet) Difference(other *ColumnSet) *ColumnSet {
	out := NewColumnSet()
	for _, name := range s.names {
		if other == nil || !other.Has(name) {
			out.Add(name)
		}
	}
	return out
}

// =============================================================================
// RECORD SET
// =============================================================================

// RecordSet is an in-memory table. Every row holds exactly one cell per
// column, positionally aligned with Columns. An empty string stands for an
// empty or missing value.
type RecordSet struct {
	// Columns is the header of the table.
	Columns *ColumnSet

	// Rows contains the data rows in source order.
	Rows [][]string

	// Source names where the data came from (file name or upload name).
	// Used in error messages and logs only.
	Source string
}

// NewRecordSet creates an empty record set with the given header.
func NewRecordSet(columns ...string) *RecordSet {
	return &RecordSet{Columns: NewColumnSet(columns...)}
}

// AppendRow adds a row. The row must have one cell per column.
func (rs *RecordSet) AppendRow(cells ...string) error {
	if len(cells) != rs.Columns.Len() {
		return fmt.Errorf("row has %d cells, want %d", len(cells), rs.Columns.Len())
	}
	row := make([]string, len(cells))
	copy(row, cells)
	rs.Rows = append(rs.Rows, row)
	return nil
}

// Len returns the number of data rows.
func (rs *RecordSet) Len() int {
	return len(rs.Rows)
}

// Get returns the value of column in row i, or "" if the column is unknown.
func (rs *RecordSet) Get(i int, column string) string {
	j := rs.Columns.Index(column)
	if j < 0 {
		return ""
	}
	return rs.Rows[i][j]
}

// Record returns row i as a column -> value map.
func (rs *RecordSet) Record(i int) map[string]string {
	rec := make(map[string]string, rs.Columns.Len())
	for j, name := range rs.Columns.names {
		rec[name] = rs.Rows[i][j]
	}
	return rec
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// MappingEntry maps one source column to one target column.
type MappingEntry struct {
	// Source is the column header in the uploaded contacts file.
	Source string `koanf:"source" yaml:"source"`

	// Target is the column name in the reference layout.
	Target string `koanf:"target" yaml:"target"`
}

// ColumnMapping is an ordered source -> target renaming table.
type ColumnMapping []MappingEntry

// DefaultColumnMapping returns the fixed contact mapping table. These keys
// are part of the external contract and must not change.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		{Source: "First Name", Target: "first_name"},
		{Source: "Last Name", Target: "last_name"},
		{Source: "Email 1", Target: "email"},
		{Source: "Phone Number 1", Target: "phone"},
		{Source: "Mailing Address", Target: "street_address"},
		{Source: "Mailing City", Target: "city"},
		{Source: "Mailing State/Province", Target: "state"},
		{Source: "Mailing Postal Code", Target: "zip_code"},
		{Source: "Groups", Target: "groups"},
	}
}

// Sources returns the source columns as an ordered set.
func (m ColumnMapping) Sources() *ColumnSet {
	s := NewColumnSet()
	for _, e := range m {
		s.Add(e.Source)
	}
	return s
}

// Targets returns the target columns as an ordered set.
func (m ColumnMapping) Targets() *ColumnSet {
	s := NewColumnSet()
	for _, e := range m {
		s.Add(e.Target)
	}
	return s
}

// Well-known target columns with special handling.
const (
	NotesColumn  = "notes"
	GroupsColumn = "groups"
)

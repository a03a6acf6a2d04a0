package converter

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// referenceColumns is the target layout used throughout the tests.
var referenceColumns = []string{
	"first_name", "last_name", "middle_name", "email", "phone",
	"street_address", "city", "state", "zip_code", "groups", "notes",
}

// contactHeader is a source export with every mapped column plus extras.
var contactHeader = []string{
	"First Name", "Last Name", "Email 1", "Phone Number 1", "Mailing Address",
	"Mailing City", "Mailing State/Province", "Mailing Postal Code", "Groups",
	"Company", "Custom1",
}

func newSource(t *testing.T, header []string, rows ...[]string) *types.RecordSet {
	t.Helper()
	rs := types.NewRecordSet(header...)
	for _, row := range rows {
		require.NoError(t, rs.AppendRow(row...))
	}
	return rs
}

func defaultTransformer() *Transformer {
	return NewTransformer(types.DefaultColumnMapping(), DefaultNotesOptions())
}

func TestTransform_EndToEndContact(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"Jane", "Doe", "jane@example.com", "555-0100", "1 Main St",
			"Springfield", "IL", "62701", "Family,Friends", "Acme", ""},
	)

	out, err := defaultTransformer().Transform(source, referenceColumns)
	require.NoError(t, err)

	assert.Equal(t, referenceColumns, out.Columns.Names())
	want := [][]string{{
		"Jane", "Doe", "", "jane@example.com", "555-0100",
		"1 Main St", "Springfield", "IL", "62701", "Family;Friends", "Company: Acme",
	}}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_ColumnsMatchReferenceOrder(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "B", "a@b.c", "1", "2", "3", "4", "5", "", "", ""},
	)
	reversed := make([]string, len(referenceColumns))
	for i, c := range referenceColumns {
		reversed[len(referenceColumns)-1-i] = c
	}

	out, err := defaultTransformer().Transform(source, reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, out.Columns.Names())
	assert.Equal(t, "A", out.Get(0, "first_name"))
	assert.Equal(t, "a@b.c", out.Get(0, "email"))
}

func TestTransform_PreservesRowCountAndOrder(t *testing.T) {
	var rows [][]string
	for _, name := range []string{"Ann", "Bob", "Cy", "Dee", "Eve"} {
		rows = append(rows, []string{name, "", "", "", "", "", "", "", "", "", ""})
	}
	// A row with every cell empty still counts.
	rows = append(rows, make([]string, len(contactHeader)))
	source := newSource(t, contactHeader, rows...)

	out, err := defaultTransformer().Transform(source, referenceColumns)
	require.NoError(t, err)
	require.Equal(t, source.Len(), out.Len())
	for i, name := range []string{"Ann", "Bob", "Cy", "Dee", "Eve", ""} {
		assert.Equal(t, name, out.Get(i, "first_name"))
	}
}

func TestTransform_AggregatesExtraColumnsIntoNotes(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "B", "", "", "", "", "", "", "", "", "x"},
		[]string{"A", "B", "", "", "", "", "", "", "", "Acme", "x"},
		[]string{"A", "B", "", "", "", "", "", "", "", "", ""},
	)

	out, stats, err := defaultTransformer().transform(source, referenceColumns)
	require.NoError(t, err)

	assert.Equal(t, "Custom1: x", out.Get(0, "notes"))
	assert.Equal(t, "Company: Acme, Custom1: x", out.Get(1, "notes"))
	assert.Equal(t, "", out.Get(2, "notes"))
	assert.Equal(t, 2, stats.NotesFilled)
	assert.Equal(t, []string{"Company", "Custom1"}, stats.ExtraColumns)
}

func TestTransform_ReplacesCommasInGroups(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"", "", "", "", "", "", "", "", "Family,Friends", "", ""},
		[]string{"", "", "", "", "", "", "", "", "Work", "", ""},
		[]string{"", "", "", "", "", "", "", "", "a,,b,", "", ""},
	)

	out, err := defaultTransformer().Transform(source, referenceColumns)
	require.NoError(t, err)
	assert.Equal(t, "Family;Friends", out.Get(0, "groups"))
	assert.Equal(t, "Work", out.Get(1, "groups"))
	assert.Equal(t, "a;;b;", out.Get(2, "groups"))
	for i := 0; i < out.Len(); i++ {
		assert.NotContains(t, out.Get(i, "groups"), ",")
	}
}

func TestTransform_BackfillsMissingTargetColumns(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "B", "", "", "", "", "", "", "", "", ""},
	)

	out, stats, err := defaultTransformer().transform(source, referenceColumns)
	require.NoError(t, err)
	assert.Equal(t, "", out.Get(0, "middle_name"))
	assert.Equal(t, []string{"middle_name"}, stats.BackfilledColumns)
}

func TestTransform_DropsMappedColumnsAbsentFromTarget(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "B", "a@b.c", "", "", "", "", "", "G1,G2", "Acme", ""},
	)

	out, err := defaultTransformer().Transform(source, []string{"email", "first_name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "first_name"}, out.Columns.Names())
	assert.Equal(t, [][]string{{"a@b.c", "A"}}, out.Rows)
}

func TestTransform_IdentityIsStable(t *testing.T) {
	header := []string{"first_name", "email", "groups", "notes"}
	source := newSource(t, header,
		[]string{"Jane", "jane@example.com", "Family;Friends", "vip"},
		[]string{"Bob", "", "", ""},
	)
	identity := types.ColumnMapping{
		{Source: "first_name", Target: "first_name"},
		{Source: "email", Target: "email"},
		{Source: "groups", Target: "groups"},
		{Source: "notes", Target: "notes"},
	}
	tr := NewTransformer(identity, DefaultNotesOptions())

	out, err := tr.Transform(source, header)
	require.NoError(t, err)
	if diff := cmp.Diff(source.Rows, out.Rows); diff != "" {
		t.Errorf("identity transform changed rows (-want +got):\n%s", diff)
	}

	again, err := tr.Transform(out, header)
	require.NoError(t, err)
	assert.Equal(t, out.Rows, again.Rows)
}

func TestTransform_MissingMappedColumn(t *testing.T) {
	var header []string
	for _, h := range contactHeader {
		if h != "Email 1" {
			header = append(header, h)
		}
	}
	source := newSource(t, header, make([]string, len(header)))

	_, err := defaultTransformer().Transform(source, referenceColumns)
	require.Error(t, err)

	var mismatch *types.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "Email 1", mismatch.Column())
	assert.Contains(t, err.Error(), "Email 1")
}

func TestTransform_ReportsAllMissingColumnsInMappingOrder(t *testing.T) {
	source := newSource(t, []string{"First Name", "Notes"}, []string{"A", "n"})

	_, err := defaultTransformer().Transform(source, referenceColumns)

	var mismatch *types.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{
		"Last Name", "Email 1", "Phone Number 1", "Mailing Address", "Mailing City",
		"Mailing State/Province", "Mailing Postal Code", "Groups",
	}, mismatch.Missing)
}

func TestTransform_InvalidInputs(t *testing.T) {
	tr := defaultTransformer()
	full := newSource(t, contactHeader, make([]string, len(contactHeader)))

	tests := []struct {
		name   string
		source *types.RecordSet
		target []string
		reason string
	}{
		{"nil source", nil, referenceColumns, "no data rows"},
		{"no rows", types.NewRecordSet(contactHeader...), referenceColumns, "no data rows"},
		{"empty target", full, nil, "no columns"},
		{"duplicate target", full, []string{"email", "email"}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Transform(tt.source, tt.target)
			var invalid *types.InvalidInputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Contains(t, invalid.Reason, tt.reason)
		})
	}
}

func TestTransform_DoesNotModifySource(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "B", "", "", "", "", "", "", "x,y", "Acme", ""},
	)
	before := make([]string, len(source.Rows[0]))
	copy(before, source.Rows[0])

	_, err := defaultTransformer().Transform(source, referenceColumns)
	require.NoError(t, err)
	assert.Equal(t, before, source.Rows[0])
	assert.Equal(t, contactHeader, source.Columns.Names())
}

// notesMapping maps a source notes column so merging applies.
func notesMapping() types.ColumnMapping {
	return append(types.DefaultColumnMapping(), types.MappingEntry{Source: "Notes", Target: "notes"})
}

func TestTransform_MergesIntoMappedNotes(t *testing.T) {
	header := append(append([]string{}, contactHeader...), "Notes")
	row := func(company, notes string) []string {
		r := make([]string, len(header))
		r[9] = company
		r[len(header)-1] = notes
		return r
	}
	source := newSource(t, header,
		row("Acme", "vip"),
		row("", "vip"),
		row("Acme", ""),
		row("", ""),
	)

	tests := []struct {
		name     string
		preserve bool
		want     []string
	}{
		{
			name: "drop empty fragments",
			want: []string{"vip, Company: Acme", "vip", "Company: Acme", ""},
		},
		{
			name:     "preserve empty fragments",
			preserve: true,
			want:     []string{"vip, Company: Acme", "vip, ", ", Company: Acme", ", "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransformer(notesMapping(), NotesOptions{Separator: ", ", PreserveEmptyFragments: tt.preserve})
			out, err := tr.Transform(source, referenceColumns)
			require.NoError(t, err)

			var got []string
			for i := 0; i < out.Len(); i++ {
				got = append(got, out.Get(i, "notes"))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform_CustomSeparator(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"", "", "", "", "", "", "", "", "", "Acme", "x"},
	)
	tr := NewTransformer(types.DefaultColumnMapping(), NotesOptions{Separator: " | "})

	out, err := tr.Transform(source, referenceColumns)
	require.NoError(t, err)
	assert.Equal(t, "Company: Acme | Custom1: x", out.Get(0, "notes"))
}

func TestTransform_WithoutNotesTarget(t *testing.T) {
	source := newSource(t, contactHeader,
		[]string{"A", "", "", "", "", "", "", "", "", "Acme", ""},
	)
	target := []string{"first_name", "email"}

	out, err := defaultTransformer().Transform(source, target)
	require.NoError(t, err)
	assert.Equal(t, target, out.Columns.Names())
	for _, row := range out.Rows {
		assert.False(t, strings.Contains(strings.Join(row, ""), "Company"))
	}
}

func TestNewTransformer_IgnoresDuplicateEntries(t *testing.T) {
	mapping := types.ColumnMapping{
		{Source: "First Name", Target: "first_name"},
		{Source: "First Name", Target: "given_name"},
		{Source: "Nick", Target: "first_name"},
	}
	tr := NewTransformer(mapping, NotesOptions{})

	assert.Equal(t, []string{"First Name"}, tr.plan.sources.Names())
	assert.Equal(t, []string{"first_name"}, tr.plan.targets.Names())
	assert.Equal(t, ", ", tr.notes.Separator)
}

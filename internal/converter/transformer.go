// =============================================================================
// Contact Formatter - Transformation Engine
// =============================================================================
//
// This module converts a contact record set from an arbitrary source layout
// into the target layout given by a reference header.
//
// TRANSFORMATION STEPS (per invocation):
//   1. Select & rename: keep the mapped source columns, renamed to targets
//   2. Aggregate extras: every unmapped source column with a value becomes a
//      "Column: value" fragment, in source header order
//   3. Merge notes: append the fragments to a mapped notes column, or use
//      them as the notes column
//   4. Normalize groups: "," becomes ";" inside the groups column
//   5. Backfill: target columns nobody produced are added as ""
//   6. Reorder & restrict: output has exactly the target columns, in order
//
// GUARANTEES:
//   - One output row per input row, same order
//   - Output columns are exactly the target columns
//   - Mapped values pass through untouched except notes and groups
//
// The Transformer holds only read-only state and is safe for concurrent use.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// NotesOptions controls how unmapped columns are folded into notes.
type NotesOptions struct {
	// Separator joins fragments. Default: ", "
	Separator string

	// PreserveEmptyFragments merges into a mapped notes column by plain
	// concatenation (existing + Separator + aggregate) even when a side is
	// empty. When false, empty sides are dropped so no dangling separator
	// is left.
	PreserveEmptyFragments bool
}

// DefaultNotesOptions returns the default notes settings.
func DefaultNotesOptions() NotesOptions {
	return NotesOptions{Separator: ", "}
}

// =============================================================================
// PROJECTION PLAN
// =============================================================================

// projectionPlan describes the renamed projection of a mapping. It is built
// once so per-row work never looks columns up by name.
type projectionPlan struct {
	// sources are the mapping keys, in mapping order.
	sources *types.ColumnSet

	// targets[i] is the renamed name of sources[i].
	targets *types.ColumnSet

	// hasNotes and hasGroups flag target columns with special handling.
	hasNotes  bool
	hasGroups bool
}

func newProjectionPlan(mapping types.ColumnMapping) projectionPlan {
	plan := projectionPlan{
		sources: types.NewColumnSet(),
		targets: types.NewColumnSet(),
	}
	for _, entry := range mapping {
		if plan.sources.Has(entry.Source) || plan.targets.Has(entry.Target) {
			continue
		}
		plan.sources.Add(entry.Source)
		plan.targets.Add(entry.Target)
	}
	plan.hasNotes = plan.targets.Has(types.NotesColumn)
	plan.hasGroups = plan.targets.Has(types.GroupsColumn)
	return plan
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a column mapping to contact record sets.
type Transformer struct {
	plan  projectionPlan
	notes NotesOptions
}

// NewTransformer creates a Transformer for mapping. The mapping must be
// valid (see validation.ValidateMapping); later duplicates are ignored.
func NewTransformer(mapping types.ColumnMapping, notes NotesOptions) *Transformer {
	if notes.Separator == "" {
		notes.Separator = DefaultNotesOptions().Separator
	}
	return &Transformer{
		plan:  newProjectionPlan(mapping),
		notes: notes,
	}
}

// TransformStats describes one transformation.
type TransformStats struct {
	// Rows is the number of rows transformed.
	Rows int

	// ExtraColumns are the unmapped source columns folded into notes.
	ExtraColumns []string

	// BackfilledColumns are target columns that were added empty.
	BackfilledColumns []string

	// NotesFilled counts rows whose notes aggregate was non-empty.
	NotesFilled int
}

// Transform converts source into the layout given by targetColumns.
//
// PARAMETERS:
//   - source: The contact records. Must have at least one row and every
//     mapped source column.
//   - targetColumns: The required output columns, in order. Non-empty, no
//     duplicates.
//
// RETURNS:
//   - A new record set with exactly targetColumns and one row per source row.
//   - An InvalidInputError for empty inputs.
//   - A SchemaMismatchError naming mapped columns absent from source.
func (t *Transformer) Transform(source *types.RecordSet, targetColumns []string) (*types.RecordSet, error) {
	out, _, err := t.transform(source, targetColumns)
	return out, err
}

// transform is Transform plus statistics.
func (t *Transformer) transform(source *types.RecordSet, targetColumns []string) (*types.RecordSet, TransformStats, error) {
	var stats TransformStats

	if source == nil || source.Columns == nil || source.Len() == 0 {
		return nil, stats, &types.InvalidInputError{Input: "source records", Reason: "no data rows"}
	}
	if len(targetColumns) == 0 {
		return nil, stats, &types.InvalidInputError{Input: "target schema", Reason: "no columns"}
	}
	target := types.NewColumnSet(targetColumns...)
	if target.Len() != len(targetColumns) {
		return nil, stats, &types.InvalidInputError{Input: "target schema", Reason: "duplicate column names"}
	}

	// =========================================================================
	// STEP 1: SELECT & RENAME
	// =========================================================================

	missing := t.plan.sources.Difference(source.Columns)
	if missing.Len() > 0 {
		return nil, stats, &types.SchemaMismatchError{Missing: missing.Names()}
	}

	sourceIdx := make([]int, t.plan.sources.Len())
	for i, name := range t.plan.sources.Names() {
		sourceIdx[i] = source.Columns.Index(name)
	}

	// =========================================================================
	// STEP 2: COLUMNS FOR THE NOTES AGGREGATE
	// =========================================================================

	extras := source.Columns.Difference(t.plan.sources)
	extraNames := extras.Names()
	extraIdx := make([]int, len(extraNames))
	for i, name := range extraNames {
		extraIdx[i] = source.Columns.Index(name)
	}

	// =========================================================================
	// STEP 5 PREP: WORKING LAYOUT
	// =========================================================================
	// Working columns are the renamed projection, then notes (if the
	// mapping does not produce it), then backfilled target columns.

	working := types.NewColumnSet(t.plan.targets.Names()...)
	working.Add(types.NotesColumn)
	for _, name := range targetColumns {
		if working.Add(name) {
			stats.BackfilledColumns = append(stats.BackfilledColumns, name)
		}
	}

	notesIdx := working.Index(types.NotesColumn)
	groupsIdx := working.Index(types.GroupsColumn)

	// STEP 6 PREP: output position -> working position.
	pick := make([]int, len(targetColumns))
	for i, name := range targetColumns {
		pick[i] = working.Index(name)
	}

	out := &types.RecordSet{
		Columns: target,
		Rows:    make([][]string, 0, source.Len()),
		Source:  source.Source,
	}

	for _, row := range source.Rows {
		work := make([]string, working.Len())

		// Step 1: projected, renamed values.
		for i, j := range sourceIdx {
			work[i] = row[j]
		}

		// Steps 2 and 3: notes.
		aggregate := t.aggregate(row, extraNames, extraIdx)
		if aggregate != "" {
			stats.NotesFilled++
		}
		if t.plan.hasNotes {
			work[notesIdx] = t.mergeNotes(work[notesIdx], aggregate)
		} else {
			work[notesIdx] = aggregate
		}

		// Step 4: groups delimiter.
		if t.plan.hasGroups {
			work[groupsIdx] = strings.ReplaceAll(work[groupsIdx], ",", ";")
		}

		// Step 6: reorder and restrict. Backfilled cells are already "".
		cells := make([]string, len(pick))
		for i, j := range pick {
			cells[i] = work[j]
		}
		out.Rows = append(out.Rows, cells)
	}

	stats.Rows = out.Len()
	stats.ExtraColumns = extraNames
	return out, stats, nil
}

// aggregate renders "Column: value" for each non-empty extra column.
func (t *Transformer) aggregate(row []string, names []string, idx []int) string {
	var fragments []string
	for i, j := range idx {
		if row[j] == "" {
			continue
		}
		fragments = append(fragments, names[i]+": "+row[j])
	}
	return strings.Join(fragments, t.notes.Separator)
}

// mergeNotes appends the aggregate to a mapped notes value.
func (t *Transformer) mergeNotes(existing, aggregate string) string {
	if t.notes.PreserveEmptyFragments {
		return existing + t.notes.Separator + aggregate
	}
	switch {
	case existing == "":
		return aggregate
	case aggregate == "":
		return existing
	default:
		return existing + t.notes.Separator + aggregate
	}
}

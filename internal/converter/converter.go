// =============================================================================
// Contact Formatter - Converter Module
// =============================================================================
//
// This module contains the invocation surface of the formatter. It takes the
// raw bytes of an uploaded contact list and a reference layout file and
// orchestrates the conversion pipeline for them.
//
// CONVERSION PIPELINE:
//   1. Read the input (CSV or XLSX) into a record set
//   2. Read the reference header to get the target layout
//   3. Transform the records into the target layout
//   4. Verify the output (columns and row count)
//   5. Serialize the output (CSV or XLSX)
//
// Every failure is terminal: no partial output is produced and nothing is
// retried. The Converter holds only read-only state and is safe to share
// between goroutines (the HTTP server does).
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/config"
	"github.com/ginjaninja78/contact-formatter/internal/csvparser"
	"github.com/ginjaninja78/contact-formatter/internal/csvwriter"
	"github.com/ginjaninja78/contact-formatter/internal/logging"
	"github.com/ginjaninja78/contact-formatter/internal/types"
	"github.com/ginjaninja78/contact-formatter/internal/validation"
	"github.com/ginjaninja78/contact-formatter/internal/xlsx"
)

// OutputBaseName is the download name of a converted file, without extension.
const OutputBaseName = "formatted_contacts"

// =============================================================================
// REQUEST AND RESULT
// =============================================================================

// Document is one uploaded or on-disk file.
type Document struct {
	// Name is the file name. It selects XLSX handling by extension and
	// labels errors.
	Name string

	// Data is the raw file content.
	Data []byte
}

// Request is one conversion.
type Request struct {
	// Input is the contact list to convert.
	Input Document

	// Reference provides the target layout through its header row.
	Reference Document

	// Format overrides the converter's output format ("csv" or "xlsx").
	Format string
}

// Result represents the outcome of one conversion.
type Result struct {
	// Output is the serialized file. Empty if the conversion failed.
	Output []byte

	// ContentType is the MIME type of Output.
	ContentType string

	// FileName is the suggested download name, e.g. formatted_contacts.csv.
	FileName string

	// Success indicates whether the conversion was successful.
	Success bool

	// Error contains the error if the conversion failed. Classify it with
	// types.ErrorKind or errors.As.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one conversion.
type ProcessingStats struct {
	// Rows is the number of contact rows converted.
	Rows int

	// SourceColumns is the number of columns in the input.
	SourceColumns int

	// TargetColumns is the number of columns in the reference layout.
	TargetColumns int

	// NotesFilled counts rows that received a notes aggregate.
	NotesFilled int

	// Duration is the time taken by the conversion.
	Duration time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Recorder receives one observation per conversion. result is "success" or
// an error kind from types.ErrorKind.
type Recorder interface {
	ObserveConversion(result string, rows int, elapsed time.Duration)
}

// Options configures a Converter.
type Options struct {
	// Mapping is the column mapping. Empty means types.DefaultColumnMapping.
	Mapping types.ColumnMapping

	// Notes controls the notes aggregate.
	Notes NotesOptions

	// CSV holds the parsing settings for CSV inputs.
	CSV config.CSVSettings

	// Format is the default output format. Empty means csv.
	Format string

	// Logger receives pipeline logs. Nil disables logging.
	Logger *zap.Logger

	// Recorder receives metrics. May be nil.
	Recorder Recorder
}

// Converter runs the conversion pipeline.
type Converter struct {
	transformer *Transformer
	mapping     types.ColumnMapping
	csv         config.CSVSettings
	format      string
	logger      *zap.Logger
	recorder    Recorder
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// New creates a new Converter.
func New(opts Options) *Converter {
	mapping := opts.Mapping
	if len(mapping) == 0 {
		mapping = types.DefaultColumnMapping()
	}
	format := config.NormalizeFormat(opts.Format)
	if !supportedFormat(format) {
		format = config.FormatCSV
	}
	return &Converter{
		transformer: NewTransformer(mapping, opts.Notes),
		mapping:     mapping,
		csv:         opts.CSV,
		format:      format,
		logger:      logging.OrNop(opts.Logger),
		recorder:    opts.Recorder,
	}
}

// NewFromConfig creates a Converter from the application configuration.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - logger: The application logger, may be nil.
//   - recorder: The metrics recorder, may be nil.
func NewFromConfig(cfg *config.Config, logger *zap.Logger, recorder Recorder) *Converter {
	return New(Options{
		Mapping: cfg.Mapping(),
		Notes: NotesOptions{
			Separator:              cfg.Notes.Separator,
			PreserveEmptyFragments: cfg.Notes.PreserveEmptyFragments,
		},
		CSV:      cfg.CSV,
		Format:   cfg.Output.Format,
		Logger:   logger,
		Recorder: recorder,
	})
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Convert executes the conversion pipeline for one request.
//
// RETURNS:
//   - A Result. Success is false and Error is set on any failure; the caller
//     never receives partial output.
func (c *Converter) Convert(ctx context.Context, req Request) Result {
	startTime := time.Now()
	result := c.convert(ctx, req)
	result.Stats.Duration = time.Since(startTime)

	kind := "success"
	if !result.Success {
		kind = types.ErrorKind(result.Error)
		c.logger.Warn("Conversion failed",
			zap.String("input", req.Input.Name),
			zap.String("kind", kind),
			zap.Error(result.Error),
		)
	} else {
		c.logger.Info("Conversion complete",
			zap.String("input", req.Input.Name),
			zap.Int("rows", result.Stats.Rows),
			zap.Int("notes_filled", result.Stats.NotesFilled),
			zap.Duration("elapsed", result.Stats.Duration),
		)
	}
	if c.recorder != nil {
		c.recorder.ObserveConversion(kind, result.Stats.Rows, result.Stats.Duration)
	}
	return result
}

func (c *Converter) convert(ctx context.Context, req Request) Result {
	var result Result

	format := c.format
	if req.Format != "" {
		format = config.NormalizeFormat(req.Format)
		if !supportedFormat(format) {
			result.Error = &types.InvalidInputError{Input: "format", Reason: fmt.Sprintf("unsupported output format %q", req.Format)}
			return result
		}
	}

	// =========================================================================
	// STEP 1: READ INPUT
	// =========================================================================

	source, err := c.readRecords(labelled(req.Input, "input"))
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		return result
	}
	result.Stats.SourceColumns = source.Columns.Len()
	c.logger.Debug("Parsed input",
		zap.String("input", source.Source),
		zap.Int("rows", source.Len()),
		zap.Int("columns", source.Columns.Len()),
	)

	// =========================================================================
	// STEP 2: READ REFERENCE HEADER
	// =========================================================================
	// Only the header matters. Data rows in the reference are ignored.

	targetColumns, err := c.ReadHeader(labelled(req.Reference, "reference"))
	if err != nil {
		result.Error = fmt.Errorf("failed to read reference: %w", err)
		return result
	}
	result.Stats.TargetColumns = len(targetColumns)
	for _, w := range validation.CheckReference(c.mapping, targetColumns) {
		c.logger.Debug("Reference check", zap.String("warning", w.Error()))
	}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	// =========================================================================
	// STEP 3: TRANSFORM
	// =========================================================================

	out, stats, err := c.transformer.transform(source, targetColumns)
	if err != nil {
		result.Error = fmt.Errorf("failed to transform contacts: %w", err)
		return result
	}
	result.Stats.NotesFilled = stats.NotesFilled
	c.logger.Debug("Transformed contacts",
		zap.Strings("extra_columns", stats.ExtraColumns),
		zap.Strings("backfilled_columns", stats.BackfilledColumns),
	)

	// =========================================================================
	// STEP 4: VERIFY OUTPUT
	// =========================================================================

	if err := validation.VerifyOutput(out, targetColumns, source.Len()); err != nil {
		result.Error = fmt.Errorf("output verification failed: %w", err)
		return result
	}

	// =========================================================================
	// STEP 5: SERIALIZE
	// =========================================================================

	switch format {
	case config.FormatXLSX:
		result.Output, err = xlsx.Marshal(out)
		result.ContentType = xlsx.ContentType
	default:
		result.Output, err = csvwriter.Marshal(out)
		result.ContentType = csvwriter.ContentType
	}
	if err != nil {
		result.Output = nil
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.FileName = OutputBaseName + "." + format
	result.Stats.Rows = out.Len()
	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func supportedFormat(format string) bool {
	return format == config.FormatCSV || format == config.FormatXLSX
}

// labelled gives an unnamed document a display name.
func labelled(doc Document, fallback string) Document {
	if doc.Name == "" {
		doc.Name = fallback
	}
	return doc
}

// readRecords parses a document as XLSX or CSV.
func (c *Converter) readRecords(doc Document) (*types.RecordSet, error) {
	if len(doc.Data) == 0 {
		return nil, &types.InvalidInputError{Input: doc.Name, Reason: "file is empty"}
	}
	if xlsx.IsWorkbook(doc.Name, doc.Data) {
		return xlsx.Read(bytes.NewReader(doc.Data), doc.Name)
	}
	return csvparser.Parse(bytes.NewReader(doc.Data), doc.Name, c.csv)
}

// ReadHeader reads only the header row of a document, the way a reference
// file is read.
func (c *Converter) ReadHeader(doc Document) ([]string, error) {
	if len(doc.Data) == 0 {
		return nil, &types.InvalidInputError{Input: doc.Name, Reason: "file is empty"}
	}
	if xlsx.IsWorkbook(doc.Name, doc.Data) {
		return xlsx.ReadHeader(bytes.NewReader(doc.Data), doc.Name)
	}
	return csvparser.ParseHeader(bytes.NewReader(doc.Data), doc.Name, c.csv)
}

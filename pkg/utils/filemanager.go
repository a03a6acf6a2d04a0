// =============================================================================
// Contact Formatter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the command line,
// including:
//   - Reading input files (or stdin) with a size limit
//   - Output file naming
//   - Writing output files
//   - Directory management
//
// WRITE STRATEGY:
//   - Output is written to a temporary file in the target directory and
//     renamed into place, so a failed run never leaves a truncated file
//   - Existing files with the same name are replaced
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// StdioName selects stdin or stdout in place of a file path.
const StdioName = "-"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the command line.
type FileManager struct {
	// OutputDir is the directory where generated output files are placed.
	OutputDir string

	// MaxInputBytes caps the size of a single input. Zero means no limit.
	MaxInputBytes int64

	// Stdin is read when an input path is "-". Defaults to os.Stdin.
	Stdin io.Reader
}

// NewFileManager creates a new FileManager.
func NewFileManager(outputDir string, maxInputBytes int64) *FileManager {
	return &FileManager{
		OutputDir:     outputDir,
		MaxInputBytes: maxInputBytes,
		Stdin:         os.Stdin,
	}
}

// =============================================================================
// INPUT
// =============================================================================

// ReadInput reads a whole input file.
//
// PARAMETERS:
//   - path: The file to read, or "-" for stdin.
//
// RETURNS:
//   - The file content.
//   - An InvalidInputError if the file is missing, a directory, or larger
//     than MaxInputBytes.
func (fm *FileManager) ReadInput(path string) ([]byte, error) {
	if path == "" {
		return nil, &types.InvalidInputError{Input: "input", Reason: "no file given"}
	}

	var r io.Reader
	if path == StdioName {
		r = fm.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.InvalidInputError{Input: path, Reason: "file does not exist"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, &types.InvalidInputError{Input: path, Reason: "is a directory"}
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	if fm.MaxInputBytes > 0 {
		r = io.LimitReader(r, fm.MaxInputBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if fm.MaxInputBytes > 0 && int64(len(data)) > fm.MaxInputBytes {
		return nil, &types.InvalidInputError{
			Input:  path,
			Reason: fmt.Sprintf("larger than %d bytes", fm.MaxInputBytes),
		}
	}
	return data, nil
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureOutputDir creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureOutputDir() error {
	if fm.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteOutput writes data to a file named name in OutputDir, creating the
// directory when needed.
//
// RETURNS:
//   - The path written.
//   - An error if writing fails.
func (fm *FileManager) WriteOutput(name string, data []byte) (string, error) {
	if err := fm.EnsureOutputDir(); err != nil {
		return "", err
	}
	path := filepath.Join(fm.OutputDir, name)
	if err := WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes data to path through a temporary file in the same
// directory, so readers never see a partial file.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     {original}  - Original file name (without extension)
//   - extension: The extension for the output format, without the dot.
//   - params: A map of extra placeholder values.
//
// RETURNS:
//   - The generated file name, ending in the extension.
//
// EXAMPLE:
//
//	format:    "{original}_{date}"
//	extension: "csv"
//	params:    {"original": "export"}
//	output:    "export_20240115.csv"
func GenerateOutputFileName(format, extension string, params map[string]string) string {
	return generateOutputFileName(time.Now(), format, extension, params)
}

func generateOutputFileName(now time.Time, format, extension string, params map[string]string) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
		"{original}":  "contacts",
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	if result == "" {
		result = "formatted_contacts"
	}

	ext := "." + strings.TrimPrefix(extension, ".")
	if extension != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// OriginalName returns the base name of path without its extension.
func OriginalName(path string) string {
	if path == "" || path == StdioName {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// =============================================================================
// Contact Formatter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults
//   2. The YAML config file (default: config.yaml, optional)
//   3. Environment variables prefixed with CONTACTS_
//      Nested keys use a double underscore:
//        CONTACTS_LOG_LEVEL=debug        -> log_level
//        CONTACTS_SERVER__ADDR=:9090     -> server.addr
//        CONTACTS_CSV__DELIMITER=";"     -> csv.delimiter
//
// The column mapping table and the reference schema are read-only for the
// lifetime of the process.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/encoding/htmlindex"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ginjaninja78/contact-formatter/internal/types"
	"github.com/ginjaninja78/contact-formatter/internal/validation"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "CONTACTS_"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// ReferenceFile is the CSV (or XLSX) file whose header row defines the
	// target layout. Only the header is used.
	// Default: "reference.csv"
	ReferenceFile string `koanf:"reference_file" yaml:"reference_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat selects the log encoding: "console" or "json".
	// Default: "console"
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// LogFile is an optional file that receives log output in addition to
	// stderr.
	LogFile string `koanf:"log_file" yaml:"log_file"`

	// =========================================================================
	// TRANSFORMATION SETTINGS
	// =========================================================================

	// CSV contains settings for reading input and reference files.
	CSV CSVSettings `koanf:"csv" yaml:"csv"`

	// Notes controls how unmapped columns are folded into the notes field.
	Notes NotesSettings `koanf:"notes" yaml:"notes"`

	// ColumnMapping replaces the built-in contact mapping when non-empty.
	// Leave empty to use the standard table (see types.DefaultColumnMapping).
	ColumnMapping types.ColumnMapping `koanf:"column_mapping" yaml:"column_mapping"`

	// =========================================================================
	// OUTPUT AND SERVER SETTINGS
	// =========================================================================

	// Output controls where and how converted files are written by the CLI.
	Output OutputSettings `koanf:"output" yaml:"output"`

	// Server controls the HTTP upload/download service.
	Server ServerSettings `koanf:"server" yaml:"server"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator.
	// Common values: "," (comma), "|" or "pipe", "tab", ";" or "semicolon"
	// Default: ","
	Delimiter string `koanf:"delimiter" yaml:"delimiter"`

	// Encoding is the character encoding of input files, as a WHATWG label.
	// Common values: "utf-8", "windows-1252", "iso-8859-1", "utf-16le"
	// Default: "utf-8"
	Encoding string `koanf:"encoding" yaml:"encoding"`

	// TrimSpace removes leading and trailing whitespace from every cell.
	// Off by default so that values pass through untouched.
	TrimSpace bool `koanf:"trim_space" yaml:"trim_space"`
}

// NotesSettings controls notes aggregation.
type NotesSettings struct {
	// Separator joins "column: value" fragments.
	// Default: ", "
	Separator string `koanf:"separator" yaml:"separator"`

	// PreserveEmptyFragments reproduces plain concatenation when merging
	// into an existing notes column: existing + separator + aggregate, even
	// when either side is empty. When false, empty parts are dropped.
	// Default: false
	PreserveEmptyFragments bool `koanf:"preserve_empty_fragments" yaml:"preserve_empty_fragments"`
}

// OutputSettings controls CLI output files.
type OutputSettings struct {
	// Dir is where converted files are written when no explicit output
	// path is given.
	// Default: "./output"
	Dir string `koanf:"dir" yaml:"dir"`

	// Format is "csv" or "xlsx".
	// Default: "csv"
	Format string `koanf:"format" yaml:"format"`

	// FileNameFormat defines output file names.
	// Placeholders:
	//   {original}  - Input file name without extension
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	// The extension for Format is appended when missing.
	// Default: "formatted_contacts_{timestamp}"
	FileNameFormat string `koanf:"file_name_format" yaml:"file_name_format"`
}

// ServerSettings controls the HTTP service.
type ServerSettings struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `koanf:"addr" yaml:"addr"`

	// MaxUploadBytes caps the size of a multipart upload.
	// Default: 10 MiB
	MaxUploadBytes int64 `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`

	// ReadTimeout and WriteTimeout bound a single request.
	// Defaults: 15s / 30s
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadConfig loads the configuration from a YAML file overlaid with
// CONTACTS_* environment variables.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. A missing file is not
//     an error; defaults and environment variables still apply.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file cannot be parsed or the result is invalid.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// envKey turns CONTACTS_SERVER__MAX_UPLOAD_BYTES into server.max_upload_bytes.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.ReferenceFile == "" {
		config.ReferenceFile = "reference.csv"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}

	// CSV settings defaults.
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "utf-8"
	}

	// Notes defaults.
	if config.Notes.Separator == "" {
		config.Notes.Separator = ", "
	}

	// Output defaults.
	if config.Output.Dir == "" {
		config.Output.Dir = "./output"
	}
	if config.Output.Format == "" {
		config.Output.Format = "csv"
	}
	config.Output.Format = NormalizeFormat(config.Output.Format)
	if config.Output.FileNameFormat == "" {
		config.Output.FileNameFormat = "formatted_contacts_{timestamp}"
	}

	// Server defaults.
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 10 << 20
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
}

// validateConfig validates the configuration after defaults are applied.
func validateConfig(config *Config) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q not supported (want debug, info, warn or error)", config.LogLevel)
	}

	switch config.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format %q not supported (want console or json)", config.LogFormat)
	}

	if _, err := DelimiterRune(config.CSV.Delimiter); err != nil {
		return err
	}

	if _, err := htmlindex.Get(config.CSV.Encoding); err != nil {
		return fmt.Errorf("csv.encoding %q not supported: %w", config.CSV.Encoding, err)
	}

	switch config.Output.Format {
	case FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("output.format %q not supported (want csv or xlsx)", config.Output.Format)
	}

	if config.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}

	if errs := validation.ValidateMapping(config.Mapping()); len(errs) > 0 {
		return fmt.Errorf("column_mapping: %s", validation.FormatErrors(errs))
	}

	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Mapping returns the effective column mapping.
func (c *Config) Mapping() types.ColumnMapping {
	if len(c.ColumnMapping) == 0 {
		return types.DefaultColumnMapping()
	}
	return c.ColumnMapping
}

// Dump renders the effective configuration as YAML, with the effective
// column mapping spelled out.
func (c *Config) Dump() ([]byte, error) {
	effective := *c
	effective.ColumnMapping = c.Mapping()
	out, err := yamlv3.Marshal(&effective)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

// =============================================================================
// FORMAT AND DELIMITER HELPERS
// =============================================================================

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// NormalizeFormat maps format aliases onto FormatCSV or FormatXLSX. Unknown
// values are returned lower-cased so validation can report them.
func NormalizeFormat(format string) string {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "", "csv", "text/csv":
		return FormatCSV
	case "xlsx", "excel", "xls":
		return FormatXLSX
	default:
		return normalized
	}
}

// DelimiterRune resolves a delimiter setting into the rune used by the
// CSV reader.
func DelimiterRune(delimiter string) (rune, error) {
	switch delimiter {
	case "", ",", "comma":
		return ',', nil
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}
	r := []rune(delimiter)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("csv.delimiter %q not supported", delimiter)
	}
	return r[0], nil
}

// =============================================================================
// Contact Formatter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (contacts)
//   ├── convertCmd  (contacts convert)
//   ├── serveCmd    (contacts serve)
//   ├── validateCmd (contacts validate)
//   └── versionCmd  (contacts version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration before any subcommand runs
//   3. Setting up logging, and flushing it afterwards
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/config"
	"github.com/ginjaninja78/contact-formatter/internal/logging"
	"github.com/ginjaninja78/contact-formatter/internal/types"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// cfg is the loaded configuration, set before any subcommand runs.
var cfg *config.Config

// logger is the application logger, set before any subcommand runs.
var logger *zap.Logger

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Contact Formatter - Convert contact exports into a fixed CSV layout",
	Long: `Contact Formatter converts contact lists exported from address books and
CRMs into the column layout of a reference file.

Mapped columns are renamed, every other column is folded into the notes
column as "Column: value", group lists are re-delimited with ";" and any
reference column the export lacks is added empty.

Example Usage:
  contacts convert --input export.csv --reference reference.csv
  contacts convert --input - --output - < export.csv > formatted.csv
  contacts serve --addr :8080
  contacts validate --config ./contacts.yaml`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			File:    cfg.LogFile,
			Verbose: verbose,
		})
		if err != nil {
			return err
		}
		logger.Debug("Configuration loaded", zap.String("path", cfgFile))
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI and exits non-zero on failure. It is called by
// main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input (2) from other failures (1).
func exitCode(err error) int {
	var invalid *types.InvalidInputError
	var parse *types.ParseError
	var mismatch *types.SchemaMismatchError
	if errors.As(err, &invalid) || errors.As(err, &parse) || errors.As(err, &mismatch) {
		return 2
	}
	return 1
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (optional)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

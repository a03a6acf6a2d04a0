// =============================================================================
// Contact Formatter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which converts one contact file
// into the layout of the reference file.
//
// COMMAND USAGE:
//   contacts convert --input FILE|- [flags]
//
// FLAGS:
//   --input, -i      : Contact file to convert ("-" reads stdin)
//   --reference, -r  : Reference layout file (default: reference_file setting)
//   --output, -o     : Output file ("-" writes stdout). Default: a generated
//                      name in output.dir
//   --format, -f     : Output format, csv or xlsx (default: output.format)
//
// PROCESSING PIPELINE:
//   1. Read the input and reference files
//   2. Convert
//   3. Write the output and print a summary to stderr
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/config"
	"github.com/ginjaninja78/contact-formatter/internal/converter"
	"github.com/ginjaninja78/contact-formatter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputPath     string
	referencePath string
	outputPath    string
	outputFormat  string
)

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a contact file into the reference layout",
	Long: `The convert command reads a contact export (CSV or XLSX), maps its columns
onto the header of the reference file and writes the result.

Nothing is written when the conversion fails. The exit status is 2 for bad
input (unreadable file, malformed CSV, missing mapped column) and 1 for
anything else.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&inputPath, "input", "i", "", `Contact file to convert ("-" for stdin)`)
	convertCmd.Flags().StringVarP(&referencePath, "reference", "r", "", "Reference layout file (default: reference_file setting)")
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", `Output file ("-" for stdout)`)
	convertCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: csv or xlsx")
	_ = convertCmd.MarkFlagRequired("input")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command) error {
	fm := utils.NewFileManager(cfg.Output.Dir, cfg.Server.MaxUploadBytes)
	fm.Stdin = cmd.InOrStdin()

	// =========================================================================
	// STEP 1: READ INPUTS
	// =========================================================================

	input, err := fm.ReadInput(inputPath)
	if err != nil {
		return err
	}

	refPath := referencePath
	if refPath == "" {
		refPath = cfg.ReferenceFile
	}
	reference, err := fm.ReadInput(refPath)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: CONVERT
	// =========================================================================

	format := cfg.Output.Format
	if outputFormat != "" {
		format = config.NormalizeFormat(outputFormat)
	}

	conv := converter.NewFromConfig(cfg, logger, nil)
	result := conv.Convert(cmd.Context(), converter.Request{
		Input:     converter.Document{Name: inputName(inputPath), Data: input},
		Reference: converter.Document{Name: refPath, Data: reference},
		Format:    format,
	})
	if !result.Success {
		return result.Error
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUT
	// =========================================================================

	if outputPath == utils.StdioName {
		_, err := cmd.OutOrStdout().Write(result.Output)
		return err
	}

	written := outputPath
	if written == "" {
		name := utils.GenerateOutputFileName(cfg.Output.FileNameFormat, format, map[string]string{
			"original": utils.OriginalName(inputPath),
		})
		if written, err = fm.WriteOutput(name, result.Output); err != nil {
			return err
		}
	} else if err := utils.WriteFile(written, result.Output); err != nil {
		return err
	}

	logger.Info("Wrote output", zap.String("path", written))
	fmt.Fprintf(cmd.ErrOrStderr(), "Converted %d contact(s) -> %s (%s)\n",
		result.Stats.Rows, written, result.Stats.Duration)
	return nil
}

// inputName labels stdin for error messages.
func inputName(path string) string {
	if path == utils.StdioName {
		return "stdin"
	}
	return path
}

// =============================================================================
// Contact Formatter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and the reference file without converting anything.
//
// COMMAND USAGE:
//   contacts validate
//
// CHECKS:
//   1. The configuration loads (done by the root command)
//   2. The column mapping is consistent
//   3. The reference file is readable and has a usable header
//   4. Mapping targets missing from the reference are reported as warnings
//
// On success the effective configuration is printed as YAML.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/converter"
	"github.com/ginjaninja78/contact-formatter/internal/validation"
	"github.com/ginjaninja78/contact-formatter/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and reference file",
	Long: `Validate loads the configuration, checks the column mapping and reads the
header of the reference file. Problems are reported and the command exits
non-zero; otherwise the effective configuration is printed as YAML.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	mapping := cfg.Mapping()
	if errs := validation.ValidateMapping(mapping); validation.HasErrors(errs) {
		return fmt.Errorf("invalid column mapping: %s", validation.FormatErrors(errs))
	}

	fm := utils.NewFileManager(cfg.Output.Dir, cfg.Server.MaxUploadBytes)
	data, err := fm.ReadInput(cfg.ReferenceFile)
	if err != nil {
		return fmt.Errorf("failed to read reference file: %w", err)
	}

	conv := converter.NewFromConfig(cfg, logger, nil)
	header, err := conv.ReadHeader(converter.Document{Name: cfg.ReferenceFile, Data: data})
	if err != nil {
		return fmt.Errorf("failed to read reference file: %w", err)
	}

	warnings := validation.CheckReference(mapping, header)
	for _, w := range warnings {
		logger.Warn("Reference check", zap.String("warning", w.Error()))
	}
	logger.Info("Configuration is valid",
		zap.Int("mapping_entries", len(mapping)),
		zap.Int("reference_columns", len(header)),
		zap.Int("warnings", len(warnings)),
	)

	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// =============================================================================
// Contact Formatter - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the converter as an HTTP
// upload/download service until SIGINT or SIGTERM.
//
// COMMAND USAGE:
//   contacts serve [--addr :8080]
//
// ENDPOINTS:
//   POST /convert, GET /healthz, GET /metrics
//
// =============================================================================

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/contact-formatter/internal/converter"
	"github.com/ginjaninja78/contact-formatter/internal/metrics"
	"github.com/ginjaninja78/contact-formatter/internal/server"
	"github.com/ginjaninja78/contact-formatter/pkg/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the converter as an HTTP service",
	Long: `The serve command accepts contact uploads on POST /convert and answers
with the formatted file as a download. Uploads without a reference file use
the configured reference_file.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr setting)")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	// The bundled reference is optional: uploads may carry their own.
	fm := utils.NewFileManager(cfg.Output.Dir, cfg.Server.MaxUploadBytes)
	reference, err := fm.ReadInput(cfg.ReferenceFile)
	if err != nil {
		logger.Warn("No default reference file; uploads must include one",
			zap.String("reference_file", cfg.ReferenceFile),
			zap.Error(err),
		)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	srv := server.New(converter.NewFromConfig(cfg, logger, m), server.Options{
		Addr:            addr,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Reference:       converter.Document{Name: cfg.ReferenceFile, Data: reference},
		Metrics:         m.Handler(),
		Logger:          logger,
	})

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steadycam/steady/internal/server"
)

// serveCmd starts the HTTP alignment server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP alignment server",
	Long: `Start an HTTP server exposing the alignment pipeline.

Endpoints:
  POST /align/image - Align an uploaded frame
  GET  /ws/align    - WebSocket alignment with progress streaming
  GET  /health      - Health check
  GET  /models      - List landmark models
  GET  /metrics     - Prometheus metrics

Examples:
  steady serve
  steady serve --port 8080
  steady serve --host 0.0.0.0 --kind landscape`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}
		maxUpload := cfg.Server.MaxUploadMB
		if cmd.Flags().Changed("max-upload-size") {
			maxUpload, _ = cmd.Flags().GetInt("max-upload-size")
		}
		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}
		requestsPerMinute, _ := cmd.Flags().GetInt("requests-per-minute")
		maxDataPerDay, _ := cmd.Flags().GetInt64("max-data-per-day")

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		aligner, cleanup, err := buildAligner(cfg, cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		srv, err := server.New(aligner, server.Config{
			Host:              host,
			Port:              port,
			CORSOrigin:        corsOrigin,
			MaxUploadMB:       int64(maxUpload),
			TimeoutSec:        timeout,
			ShutdownTimeout:   shutdownTimeout,
			RequestsPerMinute: requestsPerMinute,
			MaxDataPerDay:     maxDataPerDay,
			ModelsDir:         cfg.ModelsDir,
		}, slog.Default())
		if err != nil {
			return fmt.Errorf("initializing server: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("starting alignment server", "host", host, "port", port)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addAlignFlags(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("requests-per-minute", 0, "rate limit per client (0 disables)")
	serveCmd.Flags().Int64("max-data-per-day", 0, "daily upload quota per client in bytes (0 disables)")
}

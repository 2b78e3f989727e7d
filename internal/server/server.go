// Package server exposes the alignment pipeline over HTTP: a multipart
// upload endpoint for single frames, a WebSocket endpoint streaming
// batch progress, health and model listings, and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steadycam/steady/internal/pipeline"
)

// alignerInterface is the slice of the pipeline the server needs.
type alignerInterface interface {
	AlignImage(ctx context.Context, img image.Image) (*pipeline.AlignResult, error)
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int

	// RequestsPerMinute and MaxDataPerDay enable rate limiting when
	// positive.
	RequestsPerMinute int
	MaxDataPerDay     int64

	ModelsDir string
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	aligner     alignerInterface
	cfg         Config
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// New creates a server around an already-built aligner.
func New(aligner alignerInterface, cfg Config, logger *slog.Logger) (*Server, error) {
	if aligner == nil {
		return nil, fmt.Errorf("nil aligner")
	}
	if cfg.MaxUploadMB < 1 {
		return nil, fmt.Errorf("max upload must be at least 1 MB, got %d", cfg.MaxUploadMB)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{aligner: aligner, cfg: cfg, logger: logger}
	if cfg.RequestsPerMinute > 0 || cfg.MaxDataPerDay > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RequestsPerMinute, cfg.MaxDataPerDay)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/models", s.corsMiddleware(s.modelsHandler))
	mux.HandleFunc("/align/image", s.corsMiddleware(s.rateLimitMiddleware(s.alignImageHandler)))
	mux.HandleFunc("/ws/align", s.alignWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.TimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

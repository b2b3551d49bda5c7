// Package session provides the CLI commands that run a capture session: a
// buffer fed by the simulated scanner, optionally exposing Prometheus metrics.
package session

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/config"
	"github.com/Iron-Ham/profilebuffer/internal/logging"
	"github.com/Iron-Ham/profilebuffer/internal/scanner"
)

// metricsShutdownTimeout bounds how long the metrics server may take to drain.
const metricsShutdownTimeout = 5 * time.Second

// CreateLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func CreateLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLoggerWithRotation(cfg.Logging.LogDir(), cfg.Logging.Level, cfg.Logging.Rotation())
	if err != nil {
		// Log creation failure shouldn't prevent the session from starting
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// Session wires a buffer to a simulated scanner.
type Session struct {
	Buffer   *capture.Buffer
	Scanner  *scanner.Simulator
	Registry *prometheus.Registry

	logger *logging.Logger
}

// New builds a session from cfg. The buffer is idle; call Buffer.Start to
// begin capturing.
func New(cfg *config.Config, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	sim, err := scanner.NewSimulator(cfg.Scanner.Simulator(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	opts := []capture.Option{
		capture.WithLogger(logger),
		capture.WithFlags(cfg.Buffer.Flags()),
		capture.WithFetchBackoff(cfg.Capture.FetchBackoff.Backoff()),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, capture.WithMetrics(reg))
	}

	buf, err := capture.New(cfg.Buffer.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer: %w", err)
	}
	if err := buf.SetScanner(sim); err != nil {
		_ = buf.Close()
		return nil, err
	}

	return &Session{
		Buffer:   buf,
		Scanner:  sim,
		Registry: reg,
		logger:   logger.WithBuffer(buf.ID()),
	}, nil
}

// ApplyConfig copies the runtime flags from cfg onto the live buffer.
func (s *Session) ApplyConfig(cfg *config.Config) error {
	flags := cfg.Buffer.Flags()
	for id, value := range map[capture.OptionID]bool{
		capture.ZeroPoints:    flags.ZeroPoints,
		capture.Realtime:      flags.Realtime,
		capture.LossDetection: flags.LossDetection,
	} {
		if err := s.Buffer.SetOption(id, value); err != nil {
			return err
		}
	}
	s.logger.Info("applied configuration change",
		"zero_points", flags.ZeroPoints,
		"realtime", flags.Realtime,
		"loss_detection", flags.LossDetection,
	)
	return nil
}

// MetricsHandler returns the /metrics handler, or nil when metrics are disabled.
func (s *Session) MetricsHandler() http.Handler {
	if s.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

// ServeMetrics serves /metrics on addr until ctx is done.
func (s *Session) ServeMetrics(ctx context.Context, addr string) error {
	handler := s.MetricsHandler()
	if handler == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close stops capture if needed and releases the buffer.
func (s *Session) Close() error {
	return s.Buffer.Close()
}

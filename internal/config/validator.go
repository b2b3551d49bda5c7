package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/Iron-Ham/profilebuffer/internal/errors"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "buffer.capacity")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is makes ValidationErrors match errors.ErrInvalidInput.
func (e ValidationErrors) Is(target error) bool {
	return target == errors.ErrInvalidInput
}

// Limits enforced by Validate.
const (
	maxCapacity     = 10_000_000
	maxPoints       = 100_000
	maxLogSizeMB    = 1000 // 1GB
	minRefreshMs    = 10
	maxRefreshMs    = 10_000
	maxBackoffDelay = 60_000 // 1 minute
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateBuffer()...)
	errs = append(errs, c.validateCapture()...)
	errs = append(errs, c.validateScanner()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateMetrics()...)
	errs = append(errs, c.validateMonitor()...)

	return errs
}

// validateBuffer validates the BufferConfig
func (c *Config) validateBuffer() []ValidationError {
	var errs []ValidationError

	// One slot always stays free, so a ring needs two slots to hold anything
	if c.Buffer.Capacity < 2 {
		errs = append(errs, ValidationError{
			Field:   "buffer.capacity",
			Value:   c.Buffer.Capacity,
			Message: "must be at least 2",
		})
	}
	if c.Buffer.Capacity > maxCapacity {
		errs = append(errs, ValidationError{
			Field:   "buffer.capacity",
			Value:   c.Buffer.Capacity,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCapacity),
		})
	}

	return errs
}

// validateCapture validates the CaptureConfig
func (c *Config) validateCapture() []ValidationError {
	var errs []ValidationError
	b := c.Capture.FetchBackoff

	if b.InitialDelayMs < 0 || b.InitialDelayMs > maxBackoffDelay {
		errs = append(errs, ValidationError{
			Field:   "capture.fetch_backoff.initial_delay_ms",
			Value:   b.InitialDelayMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxBackoffDelay),
		})
	}
	if b.MaxDelayMs < 0 || b.MaxDelayMs > maxBackoffDelay {
		errs = append(errs, ValidationError{
			Field:   "capture.fetch_backoff.max_delay_ms",
			Value:   b.MaxDelayMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxBackoffDelay),
		})
	}

	// The remaining fields only matter when backoff is enabled
	if b.InitialDelayMs > 0 {
		if b.MaxDelayMs < b.InitialDelayMs {
			errs = append(errs, ValidationError{
				Field:   "capture.fetch_backoff.max_delay_ms",
				Value:   b.MaxDelayMs,
				Message: "must not be less than initial_delay_ms",
			})
		}
		if b.Multiplier < 1 {
			errs = append(errs, ValidationError{
				Field:   "capture.fetch_backoff.multiplier",
				Value:   b.Multiplier,
				Message: "must be at least 1",
			})
		}
	}

	return errs
}

// validateScanner validates the ScannerConfig
func (c *Config) validateScanner() []ValidationError {
	var errs []ValidationError
	s := c.Scanner

	if s.IntervalUs < 0 {
		errs = append(errs, ValidationError{
			Field:   "scanner.interval_us",
			Value:   s.IntervalUs,
			Message: "must be non-negative",
		})
	}
	if s.Points < 0 || s.Points > maxPoints {
		errs = append(errs, ValidationError{
			Field:   "scanner.points",
			Value:   s.Points,
			Message: fmt.Sprintf("must be between 0 and %d", maxPoints),
		})
	}
	if s.DropRate < 0 || s.DropRate > 1 {
		errs = append(errs, ValidationError{
			Field:   "scanner.drop_rate",
			Value:   s.DropRate,
			Message: "must be between 0 and 1",
		})
	}
	if s.FailureRate < 0 || s.FailureRate > 1 {
		errs = append(errs, ValidationError{
			Field:   "scanner.failure_rate",
			Value:   s.FailureRate,
			Message: "must be between 0 and 1",
		})
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateMetrics validates the MetricsConfig
func (c *Config) validateMetrics() []ValidationError {
	if !c.Metrics.Enabled {
		return nil
	}

	if _, _, err := net.SplitHostPort(c.Metrics.ListenAddr); err != nil {
		return []ValidationError{{
			Field:   "metrics.listen_addr",
			Value:   c.Metrics.ListenAddr,
			Message: "must be a host:port address",
		}}
	}
	return nil
}

// validateMonitor validates the MonitorConfig
func (c *Config) validateMonitor() []ValidationError {
	if c.Monitor.RefreshMs < minRefreshMs || c.Monitor.RefreshMs > maxRefreshMs {
		return []ValidationError{{
			Field:   "monitor.refresh_ms",
			Value:   c.Monitor.RefreshMs,
			Message: fmt.Sprintf("must be between %d and %d", minRefreshMs, maxRefreshMs),
		}}
	}
	return nil
}

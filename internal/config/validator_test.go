package config

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/profilebuffer/internal/errors"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "a", Value: 1, Message: "bad"},
			{Field: "b", Value: 2, Message: "worse"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() = %q, want count header", result)
		}
		if !strings.Contains(result, "1. a: bad") || !strings.Contains(result, "2. b: worse") {
			t.Errorf("Error() = %q, want numbered entries", result)
		}
	})
}

func TestValidationErrors_IsInvalidInput(t *testing.T) {
	var err error = ValidationErrors{{Field: "x", Message: "bad"}}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Error("ValidationErrors should match ErrInvalidInput")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"capacity too small", func(c *Config) { c.Buffer.Capacity = 1 }, "buffer.capacity"},
		{"capacity too large", func(c *Config) { c.Buffer.Capacity = maxCapacity + 1 }, "buffer.capacity"},
		{"negative initial delay", func(c *Config) { c.Capture.FetchBackoff.InitialDelayMs = -1 }, "capture.fetch_backoff.initial_delay_ms"},
		{"max below initial", func(c *Config) {
			c.Capture.FetchBackoff.InitialDelayMs = 500
			c.Capture.FetchBackoff.MaxDelayMs = 100
		}, "capture.fetch_backoff.max_delay_ms"},
		{"multiplier below one", func(c *Config) {
			c.Capture.FetchBackoff.InitialDelayMs = 10
			c.Capture.FetchBackoff.Multiplier = 0.5
		}, "capture.fetch_backoff.multiplier"},
		{"negative interval", func(c *Config) { c.Scanner.IntervalUs = -1 }, "scanner.interval_us"},
		{"too many points", func(c *Config) { c.Scanner.Points = maxPoints + 1 }, "scanner.points"},
		{"drop rate above one", func(c *Config) { c.Scanner.DropRate = 1.1 }, "scanner.drop_rate"},
		{"negative failure rate", func(c *Config) { c.Scanner.FailureRate = -0.5 }, "scanner.failure_rate"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = maxLogSizeMB + 1 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"bad listen addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddr = "9090"
		}, "metrics.listen_addr"},
		{"refresh too fast", func(c *Config) { c.Monitor.RefreshMs = 1 }, "monitor.refresh_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatalf("Validate() returned no errors, want one for %s", tt.wantField)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want an error for %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidate_AcceptsEdges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"minimum capacity", func(c *Config) { c.Buffer.Capacity = 2 }},
		{"zero interval", func(c *Config) { c.Scanner.IntervalUs = 0 }},
		{"certain failure", func(c *Config) { c.Scanner.FailureRate = 1 }},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
		{"disabled metrics ignore addr", func(c *Config) { c.Metrics.ListenAddr = "nonsense" }},
		{"metrics on localhost", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddr = "127.0.0.1:2112"
		}},
		{"enabled backoff", func(c *Config) {
			c.Capture.FetchBackoff = BackoffConfig{InitialDelayMs: 10, MaxDelayMs: 10, Multiplier: 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if errs := cfg.Validate(); len(errs) != 0 {
				t.Errorf("Validate() = %v, want none", errs)
			}
		})
	}
}

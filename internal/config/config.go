// Package config loads, validates and watches the profilebuffer configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/logging"
	"github.com/Iron-Ham/profilebuffer/internal/scanner"
)

// AppName is used for the config directory and the environment prefix.
const AppName = "profilebuffer"

// Config represents the complete profilebuffer configuration
type Config struct {
	Buffer  BufferConfig  `mapstructure:"buffer" yaml:"buffer"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
}

// BufferConfig controls the ring and the runtime flags of a buffer
type BufferConfig struct {
	// Capacity is the number of ring slots; capacity-1 profiles fit (default: 10000)
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
	// ZeroPoints asks the scanner to include invalid points (default: true)
	ZeroPoints bool `mapstructure:"zero_points" yaml:"zero_points"`
	// Realtime asks the scanner to skip its own buffering (default: false)
	Realtime bool `mapstructure:"realtime" yaml:"realtime"`
	// LossDetection reports gaps in the measure count (default: false)
	LossDetection bool `mapstructure:"loss_detection" yaml:"loss_detection"`
}

// CaptureConfig controls the capture goroutine
type CaptureConfig struct {
	FetchBackoff BackoffConfig `mapstructure:"fetch_backoff" yaml:"fetch_backoff"`
}

// BackoffConfig controls the delay after consecutive fetch failures.
// An initial delay of 0 retries immediately.
type BackoffConfig struct {
	InitialDelayMs int     `mapstructure:"initial_delay_ms" yaml:"initial_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`
	Multiplier     float64 `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter         bool    `mapstructure:"jitter" yaml:"jitter"`
}

// ScannerConfig configures the simulated scanner
type ScannerConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	SerialNumber uint32 `mapstructure:"serial_number" yaml:"serial_number"`
	Address      string `mapstructure:"address" yaml:"address"`
	// IntervalUs is the time between profiles in microseconds (default: 1000)
	IntervalUs int `mapstructure:"interval_us" yaml:"interval_us"`
	// Points is the number of points per profile (default: 640)
	Points      int     `mapstructure:"points" yaml:"points"`
	StartCount  uint32  `mapstructure:"start_count" yaml:"start_count"`
	DropRate    float64 `mapstructure:"drop_rate" yaml:"drop_rate"`
	FailureRate float64 `mapstructure:"failure_rate" yaml:"failure_rate"`
	Seed        uint64  `mapstructure:"seed" yaml:"seed"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty means <config dir>/logs.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// MonitorConfig controls the interactive monitor
type MonitorConfig struct {
	// RefreshMs is the redraw interval in milliseconds (default: 100)
	RefreshMs int `mapstructure:"refresh_ms" yaml:"refresh_ms"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	sim := scanner.DefaultSimulatorConfig()
	flags := capture.DefaultFlags()

	return &Config{
		Buffer: BufferConfig{
			Capacity:      capture.DefaultCapacity,
			ZeroPoints:    flags.ZeroPoints,
			Realtime:      flags.Realtime,
			LossDetection: flags.LossDetection,
		},
		Capture: CaptureConfig{
			FetchBackoff: BackoffConfig{
				MaxDelayMs: 1000,
				Multiplier: 2.0,
			},
		},
		Scanner: ScannerConfig{
			Name:         sim.Info.Name,
			SerialNumber: sim.Info.SerialNumber,
			Address:      sim.Info.Address,
			IntervalUs:   int(sim.Interval / time.Microsecond),
			Points:       sim.Points,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
		Monitor: MonitorConfig{
			RefreshMs: 100,
		},
	}
}

// Flags returns the buffer runtime flags
func (c *BufferConfig) Flags() capture.Flags {
	return capture.Flags{
		ZeroPoints:    c.ZeroPoints,
		Realtime:      c.Realtime,
		LossDetection: c.LossDetection,
	}
}

// Backoff converts the config to a capture.Backoff
func (c *BackoffConfig) Backoff() capture.Backoff {
	return capture.Backoff{
		InitialDelay: time.Duration(c.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.MaxDelayMs) * time.Millisecond,
		Multiplier:   c.Multiplier,
		Jitter:       c.Jitter,
	}
}

// Simulator converts the config to a scanner.SimulatorConfig
func (c *ScannerConfig) Simulator() scanner.SimulatorConfig {
	return scanner.SimulatorConfig{
		Info: scanner.Info{
			Name:         c.Name,
			SerialNumber: c.SerialNumber,
			Address:      c.Address,
			Firmware:     "sim",
		},
		Interval:    time.Duration(c.IntervalUs) * time.Microsecond,
		Points:      c.Points,
		StartCount:  c.StartCount,
		DropRate:    c.DropRate,
		FailureRate: c.FailureRate,
		Seed:        c.Seed,
	}
}

// Rotation returns the log rotation settings
func (c *LoggingConfig) Rotation() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// LogDir returns the directory log files are written to
func (c *LoggingConfig) LogDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(ConfigDir(), "logs")
}

// RefreshInterval returns the monitor refresh interval as a time.Duration
func (c *MonitorConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Buffer defaults
	viper.SetDefault("buffer.capacity", defaults.Buffer.Capacity)
	viper.SetDefault("buffer.zero_points", defaults.Buffer.ZeroPoints)
	viper.SetDefault("buffer.realtime", defaults.Buffer.Realtime)
	viper.SetDefault("buffer.loss_detection", defaults.Buffer.LossDetection)

	// Capture defaults
	viper.SetDefault("capture.fetch_backoff.initial_delay_ms", defaults.Capture.FetchBackoff.InitialDelayMs)
	viper.SetDefault("capture.fetch_backoff.max_delay_ms", defaults.Capture.FetchBackoff.MaxDelayMs)
	viper.SetDefault("capture.fetch_backoff.multiplier", defaults.Capture.FetchBackoff.Multiplier)
	viper.SetDefault("capture.fetch_backoff.jitter", defaults.Capture.FetchBackoff.Jitter)

	// Scanner defaults
	viper.SetDefault("scanner.name", defaults.Scanner.Name)
	viper.SetDefault("scanner.serial_number", defaults.Scanner.SerialNumber)
	viper.SetDefault("scanner.address", defaults.Scanner.Address)
	viper.SetDefault("scanner.interval_us", defaults.Scanner.IntervalUs)
	viper.SetDefault("scanner.points", defaults.Scanner.Points)
	viper.SetDefault("scanner.start_count", defaults.Scanner.StartCount)
	viper.SetDefault("scanner.drop_rate", defaults.Scanner.DropRate)
	viper.SetDefault("scanner.failure_rate", defaults.Scanner.FailureRate)
	viper.SetDefault("scanner.seed", defaults.Scanner.Seed)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.listen_addr", defaults.Metrics.ListenAddr)

	// Monitor defaults
	viper.SetDefault("monitor.refresh_ms", defaults.Monitor.RefreshMs)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

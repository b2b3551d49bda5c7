// Package config provides CLI commands for managing profilebuffer configuration.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/profilebuffer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify profilebuffer configuration",
	Long: `View or modify profilebuffer configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  profilebuffer config set buffer.capacity 50000
  profilebuffer config set buffer.loss_detection true
  profilebuffer config set scanner.drop_rate 0.01

Valid keys:
  buffer.capacity        - Ring slots; capacity-1 profiles fit
  buffer.zero_points     - Include invalid points (true/false)
  buffer.realtime        - Skip scanner buffering (true/false)
  buffer.loss_detection  - Report measure-count gaps (true/false)
  scanner.interval_us    - Time between simulated profiles in microseconds
  scanner.points         - Points per simulated profile
  scanner.drop_rate      - Probability of a simulated gap (0-1)
  scanner.failure_rate   - Probability of a simulated fetch failure (0-1)
  logging.level          - debug, info, warn, error
  metrics.enabled        - Serve Prometheus metrics (true/false)
  metrics.listen_addr    - Metrics listen address (host:port)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/profilebuffer/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// Register adds all config-related commands to the given parent command.
// This is the main entry point for integrating the config subpackage with
// the root command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// settableKeys maps the keys accepted by 'config set' to their value kind.
var settableKeys = map[string]string{
	"buffer.capacity":       "int",
	"buffer.zero_points":    "bool",
	"buffer.realtime":       "bool",
	"buffer.loss_detection": "bool",
	"scanner.interval_us":   "int",
	"scanner.points":        "int",
	"scanner.drop_rate":     "float",
	"scanner.failure_rate":  "float",
	"logging.level":         "string",
	"metrics.enabled":       "bool",
	"metrics.listen_addr":   "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}
	return writeYAML(out, cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'profilebuffer config set --help' to see valid keys", key)
	}

	typedValue, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Validate the whole config with the new value before writing it
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := appconfig.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configDir := appconfig.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

func parseValue(kind, value string) (any, error) {
	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("expected true or false")
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("expected integer")
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number")
		}
		return f, nil
	default:
		return value, nil
	}
}

const configHeader = `# profilebuffer configuration
#
# buffer:   ring capacity and the runtime flags applied to every capture
# capture:  delay after failed fetches (initial_delay_ms: 0 retries immediately)
# scanner:  simulated device parameters
# logging:  JSON log file with size-based rotation
# metrics:  Prometheus endpoint served during capture
# monitor:  refresh rate of the interactive monitor
#
# Every key can be overridden with PROFILEBUFFER_<SECTION>_<KEY>,
# e.g. PROFILEBUFFER_BUFFER_CAPACITY=50000.

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := appconfig.ConfigDir()
	configFile := appconfig.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'profilebuffer config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := writeYAML(&buf, appconfig.Default()); err != nil {
		return err
	}
	if err := os.WriteFile(configFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize capture behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: PROFILEBUFFER_* (e.g., PROFILEBUFFER_BUFFER_CAPACITY)")
	return nil
}

func writeYAML(w io.Writer, cfg *appconfig.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// Package cmd wires the profilebuffer subcommands into a cobra root command.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/profilebuffer/internal/cmd/config"
	"github.com/Iron-Ham/profilebuffer/internal/cmd/session"
	appconfig "github.com/Iron-Ham/profilebuffer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "profilebuffer",
	Short: "Ring-buffered profile capture for line scanners",
	Long: `profilebuffer captures measurement profiles from a line scanner into a
fixed-size ring buffer on a background goroutine. The oldest profiles are
overwritten when the buffer is full, and gaps in the scanner's measure
counter can be reported as lost profiles.

The bundled scanner is a simulator; its rate, profile size, drop rate and
failure rate are configurable.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/profilebuffer/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	session.Register(rootCmd)
	config.Register(rootCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/profilebuffer")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PROFILEBUFFER")
	// e.g., PROFILEBUFFER_BUFFER_LOSS_DETECTION for buffer.loss_detection
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

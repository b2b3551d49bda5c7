package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the library version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "profilebuffer %s (%s %s/%s)\n",
			capture.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

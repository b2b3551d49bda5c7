// Command profilebuffer captures scanner profiles into a ring buffer.
package main

import (
	"os"

	"github.com/Iron-Ham/profilebuffer/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

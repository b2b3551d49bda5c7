package session

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/profilebuffer/internal/config"
	"github.com/Iron-Ham/profilebuffer/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive view of a live capture buffer",
	Long: `Open an interactive monitor of a capture buffer fed by the scanner.

Keys:
  s  start or stop capture
  c  clear the buffer
  z  toggle zero points
  r  toggle realtime
  l  toggle loss detection
  q  quit`,
	RunE: runMonitor,
}

// RegisterMonitorCmd registers the monitor command with the parent command.
func RegisterMonitorCmd(parent *cobra.Command) {
	parent.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("monitor requires an interactive terminal; use 'profilebuffer capture' instead")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	sess, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	// The monitor shows the last error itself
	sess.Buffer.SetErrorHandler(nil)
	if err := sess.Buffer.Start(); err != nil {
		return err
	}

	title := fmt.Sprintf("profilebuffer monitor: %s", sess.Scanner.Info().Name)
	model := tui.NewModel(sess.Buffer, title, cfg.Monitor.RefreshInterval())

	if cfg.Metrics.Enabled {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			if err := sess.ServeMetrics(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.Error("metrics server stopped", "error", err.Error())
			}
		}()
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

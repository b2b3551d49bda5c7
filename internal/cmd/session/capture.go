package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/config"
	"github.com/Iron-Ham/profilebuffer/internal/scanner"
)

// Drain modes accepted by --drain.
const (
	DrainBack  = "back"
	DrainFront = "front"
	DrainAll   = "all"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

var (
	captureDuration      time.Duration
	captureDrain         string
	captureOutput        string
	captureVerbose       bool
	captureZeroPoints    bool
	captureRealtime      bool
	captureLossDetection bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture profiles for a fixed time and drain the buffer",
	Long: `Capture profiles from the scanner into a ring buffer for a fixed duration,
then stop and drain the buffer.

Errors reported by the buffer (missing profiles, measure-count gaps) are
printed as they happen. With --verbose every captured profile is printed too.

Option flags override the buffer section of the config file. While the
session runs, edits to the config file are applied to the live buffer.`,
	RunE: runCapture,
}

// RegisterCaptureCmd registers the capture command with the parent command.
func RegisterCaptureCmd(parent *cobra.Command) {
	captureCmd.Flags().DurationVarP(&captureDuration, "duration", "d", 3*time.Second, "How long to capture")
	captureCmd.Flags().StringVar(&captureDrain, "drain", DrainBack, "How to drain the buffer: back, front, all")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", OutputText, "Output format: text, yaml")
	captureCmd.Flags().BoolVarP(&captureVerbose, "verbose", "v", false, "Print every captured profile")
	captureCmd.Flags().BoolVar(&captureZeroPoints, "zero-points", true, "Include invalid points in profiles")
	captureCmd.Flags().BoolVar(&captureRealtime, "realtime", false, "Skip scanner buffering")
	captureCmd.Flags().BoolVar(&captureLossDetection, "loss-detection", false, "Report measure-count gaps")
	parent.AddCommand(captureCmd)
}

// Report is the result of a capture session.
type Report struct {
	Version  string           `yaml:"version"`
	Scanner  scanner.Info     `yaml:"scanner"`
	Duration time.Duration    `yaml:"duration"`
	Stats    capture.Stats    `yaml:"stats"`
	Drained  int              `yaml:"drained"`
	Errors   int              `yaml:"errors"`
	Profiles []ProfileSummary `yaml:"profiles,omitempty"`
}

// ProfileSummary describes one drained profile.
type ProfileSummary struct {
	MeasureCount uint32    `yaml:"measure_count"`
	Points       int       `yaml:"points"`
	ValidPoints  int       `yaml:"valid_points"`
	Timestamp    time.Time `yaml:"timestamp"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	if err := validateCaptureFlags(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	logger := CreateLogger(cfg)
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &lockedWriter{w: cmd.OutOrStdout()}
	text := captureOutput == OutputText

	sess, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if text {
		fmt.Fprintf(out, "profilebuffer %s\n", capture.Version)
		fmt.Fprintf(out, "Found scanner: %s\n", sess.Scanner.Info())
	}

	var errCount atomic.Int64
	sess.Buffer.SetErrorHandler(func(err error) bool {
		errCount.Add(1)
		if text {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		return true
	})
	if captureVerbose && text {
		sess.Buffer.SetProfileHandler(func(p capture.Profile) capture.Disposition {
			fmt.Fprintf(out, "Profile #%d processed\n", p.MeasureCount())
			return capture.PassThrough
		})
	}

	if viper.ConfigFileUsed() != "" {
		config.Watch(func(newCfg *config.Config, err error) {
			if err != nil {
				logger.Warn("ignoring invalid configuration change", "error", err.Error())
				return
			}
			applyFlagOverrides(cmd, newCfg)
			_ = sess.ApplyConfig(newCfg)
		})
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sessCtx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return sess.ServeMetrics(gctx, cfg.Metrics.ListenAddr)
		})
	}

	var report *Report
	g.Go(func() error {
		defer cancel()
		r, err := runSession(gctx, sess, captureDuration, captureDrain, out, text)
		report = r
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	report.Errors = int(errCount.Load())
	if !text {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	}
	return nil
}

// runSession starts capture, waits for d or ctx, stops and drains the buffer.
func runSession(ctx context.Context, sess *Session, d time.Duration, drain string, out io.Writer, text bool) (*Report, error) {
	buf := sess.Buffer
	if err := buf.Start(); err != nil {
		return nil, err
	}

	started := time.Now()
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	if err := buf.Stop(); err != nil {
		return nil, err
	}
	elapsed := time.Since(started)

	if text {
		fmt.Fprintf(out, "Buffer size: %d\n", buf.Size())
	}
	stats := buf.Stats()
	drained := drainBuffer(buf, drain)
	if text {
		fmt.Fprintf(out, "Profiles received: %d\n", len(drained))
	}

	report := &Report{
		Version:  capture.Version,
		Scanner:  sess.Scanner.Info(),
		Duration: elapsed.Round(time.Millisecond),
		Stats:    stats,
		Drained:  len(drained),
	}
	for _, p := range drained {
		summary := ProfileSummary{MeasureCount: p.MeasureCount()}
		if sp, ok := p.(*scanner.Profile); ok {
			summary.Points = len(sp.Points)
			summary.ValidPoints = sp.ValidPoints()
			summary.Timestamp = sp.Header.Timestamp
		}
		report.Profiles = append(report.Profiles, summary)
	}
	return report, nil
}

// drainBuffer empties buf in the requested order.
func drainBuffer(buf *capture.Buffer, mode string) []capture.Profile {
	if mode == DrainAll {
		return buf.All()
	}

	take := buf.Back
	if mode == DrainFront {
		take = buf.Front
	}

	var out []capture.Profile
	for buf.Size() > 0 {
		p, err := take()
		if err != nil {
			break
		}
		out = append(out, p)
	}
	return out
}

func validateCaptureFlags() error {
	switch captureDrain {
	case DrainBack, DrainFront, DrainAll:
	default:
		return fmt.Errorf("invalid --drain %q: must be one of back, front, all", captureDrain)
	}
	switch captureOutput {
	case OutputText, OutputYAML:
	default:
		return fmt.Errorf("invalid --output %q: must be text or yaml", captureOutput)
	}
	if captureDuration <= 0 {
		return fmt.Errorf("--duration must be positive")
	}
	return nil
}

// applyFlagOverrides copies explicitly set option flags onto cfg.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("zero-points") {
		cfg.Buffer.ZeroPoints = captureZeroPoints
	}
	if flags.Changed("realtime") {
		cfg.Buffer.Realtime = captureRealtime
	}
	if flags.Changed("loss-detection") {
		cfg.Buffer.LossDetection = captureLossDetection
	}
}

// lockedWriter serializes writes from the capture goroutine and the command.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

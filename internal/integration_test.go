// Package internal contains integration tests that verify the packages work
// together: configuration feeds a session, the simulated scanner feeds the
// buffer, and errors flow back to the caller.
package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/cmd/session"
	"github.com/Iron-Ham/profilebuffer/internal/config"
	"github.com/Iron-Ham/profilebuffer/internal/errors"
	"github.com/Iron-Ham/profilebuffer/internal/scanner"
	"github.com/Iron-Ham/profilebuffer/internal/testutil"
)

const integrationConfig = `
buffer:
  capacity: 64
  zero_points: false
  loss_detection: true
scanner:
  interval_us: 100
  points: 32
  drop_rate: 0.2
  failure_rate: 0.05
  seed: 42
logging:
  enabled: false
`

// loadConfig reads yaml through viper the same way the root command does.
func loadConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	config.SetDefaults()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

// TestCaptureSessionIntegration runs a lossy, failing scanner through a
// configured session and checks that every problem reaches the error handler.
func TestCaptureSessionIntegration(t *testing.T) {
	cfg := loadConfig(t, integrationConfig)
	require.Equal(t, 64, cfg.Buffer.Capacity)
	require.True(t, cfg.Buffer.LossDetection)

	sess, err := session.New(cfg, nil)
	require.NoError(t, err)
	defer sess.Close()

	rec := &testutil.ErrorRecorder{Consume: true}
	sess.Buffer.SetErrorHandler(rec.Handle)

	require.NoError(t, sess.Buffer.Start())
	testutil.WaitFor(t, 10*time.Second, func() bool {
		s := sess.Buffer.Stats()
		return s.LossEvents > 0 && s.FetchFailures > 0 && s.Overwritten > 0
	}, "expected loss, fetch failures and overwrites")
	require.NoError(t, sess.Buffer.Stop())

	stats := sess.Buffer.Stats()
	assert.Equal(t, capture.StateIdle.String(), stats.State)
	assert.Equal(t, 63, stats.Size, "a full ring holds capacity-1 profiles")
	assert.Equal(t, int(stats.LossEvents), rec.Count(errors.ErrProfileLoss))
	assert.Equal(t, int(stats.FetchFailures), rec.Count(errors.ErrFetchFailed))
	assert.Nil(t, sess.Buffer.LastError(), "consumed errors must not be kept")

	var lost uint64
	for _, err := range rec.Errors() {
		var lossErr *errors.LossError
		if errors.As(err, &lossErr) {
			lost += lossErr.Lost
		}
	}
	assert.Equal(t, stats.ProfilesLost, lost)

	profiles := sess.Buffer.All()
	require.Len(t, profiles, 63)
	for _, p := range profiles {
		sp, ok := p.(*scanner.Profile)
		require.True(t, ok)
		assert.Equal(t, sp.ValidPoints(), len(sp.Points), "zero points must be stripped")
	}
	assert.Zero(t, sess.Buffer.Size())
}

// TestCaptureSessionIntegration_UnconsumedErrors checks that without an error
// handler the most recent error stays available after capture.
func TestCaptureSessionIntegration_UnconsumedErrors(t *testing.T) {
	cfg := loadConfig(t, integrationConfig)

	sess, err := session.New(cfg, nil)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Buffer.Start())
	testutil.WaitFor(t, 10*time.Second, func() bool {
		return sess.Buffer.LastError() != nil
	}, "expected an error to be kept")
	require.NoError(t, sess.Buffer.Stop())

	assert.NotEmpty(t, sess.Buffer.ErrorInfo())
	last := sess.Buffer.LastError()
	assert.True(t, errors.Is(last, errors.ErrProfileLoss) || errors.Is(last, errors.ErrFetchFailed), "unexpected error: %v", last)
}

// TestCaptureSessionIntegration_LiveOptionChange applies a config change to a
// running session.
func TestCaptureSessionIntegration_LiveOptionChange(t *testing.T) {
	cfg := loadConfig(t, integrationConfig)
	cfg.Scanner.DropRate = 0
	cfg.Scanner.FailureRate = 0

	sess, err := session.New(cfg, nil)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Buffer.Start())

	updated := *cfg
	updated.Buffer.ZeroPoints = true
	updated.Buffer.LossDetection = false
	require.NoError(t, sess.ApplyConfig(&updated))
	assert.Equal(t, capture.StateCapturing, sess.Buffer.State())

	sess.Buffer.Clear()
	testutil.WaitFor(t, 5*time.Second, func() bool { return sess.Buffer.Size() >= 3 }, "no profiles after option change")
	require.NoError(t, sess.Buffer.Stop())

	// The first profile after Clear may have been fetched before the change
	profiles := sess.Buffer.All()
	last := profiles[len(profiles)-1].(*scanner.Profile)
	assert.Len(t, last.Points, 32)
}

package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/config"
	"github.com/Iron-Ham/profilebuffer/internal/testutil"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Enabled = false
	cfg.Scanner.IntervalUs = 100
	cfg.Scanner.Points = 8
	return cfg
}

func TestNew(t *testing.T) {
	sess, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, capture.DefaultCapacity, sess.Buffer.Capacity())
	assert.Equal(t, capture.StateIdle, sess.Buffer.State())
	assert.Nil(t, sess.Registry)
	assert.Nil(t, sess.MetricsHandler())
	assert.Equal(t, capture.DefaultFlags(), sess.Buffer.Flags())
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"capacity", func(c *config.Config) { c.Buffer.Capacity = 1 }},
		{"drop rate", func(c *config.Config) { c.Scanner.DropRate = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestSession_ApplyConfig(t *testing.T) {
	sess, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer sess.Close()

	cfg := testConfig()
	cfg.Buffer.ZeroPoints = false
	cfg.Buffer.LossDetection = true
	require.NoError(t, sess.ApplyConfig(cfg))

	assert.Equal(t, capture.Flags{ZeroPoints: false, Realtime: false, LossDetection: true}, sess.Buffer.Flags())
}

func TestSession_MetricsHandler(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true

	sess, err := New(cfg, nil)
	require.NoError(t, err)
	defer sess.Close()
	require.NotNil(t, sess.Registry)

	require.NoError(t, sess.Buffer.Start())
	testutil.WaitFor(t, 5*time.Second, func() bool { return sess.Buffer.Size() > 0 }, "no profile captured")
	require.NoError(t, sess.Buffer.Stop())

	srv := httptest.NewServer(sess.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "profilebuffer_capture_profiles_captured_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestSession_ServeMetricsDisabled(t *testing.T) {
	sess, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer sess.Close()

	// Without a registry there is nothing to serve
	assert.NoError(t, sess.ServeMetrics(context.Background(), "127.0.0.1:0"))
}

func TestSession_ServeMetricsShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	sess, err := New(cfg, nil)
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.ServeMetrics(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeMetrics did not return after cancel")
	}
}

// filledBuffer returns a stopped buffer holding capacity-1 consecutive profiles.
func filledBuffer(t *testing.T, capacity int) *capture.Buffer {
	t.Helper()
	buf, err := capture.New(capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })

	require.NoError(t, buf.SetScanner(testutil.NewSequenceScanner(1)))
	require.NoError(t, buf.Start())
	testutil.WaitFor(t, 5*time.Second, func() bool { return buf.Size() == capacity-1 }, "buffer never filled")
	require.NoError(t, buf.Stop())
	return buf
}

func TestDrainBuffer(t *testing.T) {
	tests := []struct {
		mode       string
		increasing bool
	}{
		{DrainFront, true},
		{DrainAll, true},
		{DrainBack, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			buf := filledBuffer(t, 8)

			counts := testutil.Counts(drainBuffer(buf, tt.mode))
			require.Len(t, counts, 7)
			assert.Zero(t, buf.Size())

			for i := 1; i < len(counts); i++ {
				if tt.increasing {
					assert.Equal(t, counts[i-1]+1, counts[i])
				} else {
					assert.Equal(t, counts[i-1]-1, counts[i])
				}
			}
		})
	}
}

func TestDrainBuffer_Empty(t *testing.T) {
	buf, err := capture.New(4)
	require.NoError(t, err)
	defer buf.Close()

	rec := &testutil.ErrorRecorder{Consume: true}
	buf.SetErrorHandler(rec.Handle)

	assert.Empty(t, drainBuffer(buf, DrainBack))
	assert.Empty(t, rec.Errors(), "draining an empty buffer must not report errors")
}

func TestRunSession(t *testing.T) {
	sess, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer sess.Close()

	report, err := runSession(context.Background(), sess, 20*time.Millisecond, DrainAll, io.Discard, false)
	require.NoError(t, err)

	assert.Equal(t, capture.Version, report.Version)
	assert.Equal(t, report.Stats.Size, report.Drained)
	assert.Len(t, report.Profiles, report.Drained)
	assert.Equal(t, capture.StateIdle.String(), report.Stats.State)
	for _, p := range report.Profiles {
		assert.Equal(t, 8, p.Points)
	}
}

func TestRunSession_Canceled(t *testing.T) {
	sess, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err = runSession(ctx, sess, time.Minute, DrainBack, io.Discard, false)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

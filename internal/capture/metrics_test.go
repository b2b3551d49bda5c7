package capture

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m, err := newMetrics(reg, "b-1")
	require.NoError(t, err)

	m.recordWrite(3, 5, false)
	m.recordWrite(4, 5, true)
	m.recordIntercept()
	m.recordFetchFailure()
	m.recordLoss(3)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.captured))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.overwritten))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.intercepted))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetchFailures))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.lossEvents))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.profilesLost))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.size))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.utilization))

	count, err := promtest.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestNewMetrics_DuplicateBufferID(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := newMetrics(reg, "dup")
	require.NoError(t, err)

	_, err = newMetrics(reg, "dup")
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics
	assert.NotPanics(t, func() {
		m.recordWrite(1, 2, true)
		m.recordIntercept()
		m.recordFetchFailure()
		m.recordLoss(1)
		m.updateSize(0, 2)
	})
}

func TestBuffer_WithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	b, err := New(4, WithID("m-1"), WithMetrics(reg))
	require.NoError(t, err)
	defer b.Close()

	var next uint32
	require.NoError(t, b.SetScanner(ScannerFunc(func(ctx context.Context, _, _ bool) (Profile, error) {
		if next == 5 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		next++
		return stubProfile(next), nil
	})))
	require.NoError(t, b.Start())

	require.Eventually(t, func() bool {
		return b.Stats().Captured == 5
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, b.Stop())

	assert.Equal(t, 5.0, promtest.ToFloat64(b.metrics.captured))
	assert.Equal(t, 2.0, promtest.ToFloat64(b.metrics.overwritten))
	assert.Equal(t, 3.0, promtest.ToFloat64(b.metrics.size))

	_, err = b.Front()
	require.NoError(t, err)
	assert.Equal(t, 2.0, promtest.ToFloat64(b.metrics.size))

	_, err = New(4, WithID("m-1"), WithMetrics(reg))
	assert.Error(t, err, "registering the same buffer ID twice should fail")
}

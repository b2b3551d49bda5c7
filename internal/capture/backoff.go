package capture

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff controls how long the capture loop waits after a failed fetch.
//
// The zero value disables waiting: a failing scanner is retried immediately,
// producing one error report per attempt. Set InitialDelay to enable an
// exponential delay that grows by Multiplier per consecutive failure up to
// MaxDelay.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultBackoff returns a bounded backoff suitable for network scanners.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Enabled reports whether failed fetches are delayed at all.
func (b Backoff) Enabled() bool {
	return b.InitialDelay > 0
}

// Delay returns the wait after the given number of consecutive failures,
// without jitter.
func (b Backoff) Delay(failures int) time.Duration {
	if !b.Enabled() || failures <= 0 {
		return 0
	}

	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	limit := b.MaxDelay
	if limit < b.InitialDelay {
		limit = b.InitialDelay
	}

	delay := float64(b.InitialDelay)
	for i := 1; i < failures; i++ {
		delay *= mult
		if delay >= float64(limit) {
			return limit
		}
	}
	return time.Duration(delay)
}

// wait sleeps for the backoff delay. It returns false if ctx was cancelled
// first.
func (b Backoff) wait(ctx context.Context, failures int) bool {
	d := b.Delay(failures)
	if d <= 0 {
		return ctx.Err() == nil
	}
	if b.Jitter && d >= 4 {
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

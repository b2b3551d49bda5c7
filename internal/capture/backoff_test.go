package capture

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     80 * time.Millisecond,
		Multiplier:   2,
	}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 80 * time.Millisecond},
		{10, 80 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestBackoff_ZeroValueDisabled(t *testing.T) {
	var b Backoff
	if b.Enabled() {
		t.Error("zero Backoff should be disabled")
	}
	if d := b.Delay(5); d != 0 {
		t.Errorf("Delay(5) = %v, want 0", d)
	}
	if !b.wait(context.Background(), 5) {
		t.Error("wait() = false, want true for a live context")
	}
}

func TestBackoff_MultiplierBelowOneIsConstant(t *testing.T) {
	b := Backoff{InitialDelay: 5 * time.Millisecond, Multiplier: 0.5}
	if got := b.Delay(4); got != 5*time.Millisecond {
		t.Errorf("Delay(4) = %v, want 5ms", got)
	}
}

func TestBackoff_WaitHonorsCancel(t *testing.T) {
	b := Backoff{InitialDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if b.wait(ctx, 1) {
		t.Error("wait() = true, want false after cancel")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait() took %v after cancel", elapsed)
	}
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()
	if !b.Enabled() {
		t.Fatal("DefaultBackoff should be enabled")
	}
	if b.Delay(100) != b.MaxDelay {
		t.Errorf("Delay(100) = %v, want MaxDelay %v", b.Delay(100), b.MaxDelay)
	}
}

package capture

import (
	"math"
	"testing"
)

func TestLossDetector_Observe(t *testing.T) {
	tests := []struct {
		name         string
		counts       []uint32
		wantLost     uint64
		wantDetected bool
	}{
		{"first profile sets baseline", []uint32{42}, 0, false},
		{"consecutive", []uint32{5, 6}, 0, false},
		{"gap", []uint32{5, 8}, 3, true},
		{"gap of two", []uint32{100, 102}, 2, true},
		{"repeated count", []uint32{7, 7}, 0, false},
		{"wrap without loss", []uint32{math.MaxUint32, 0}, 0, false},
		{"wrap with loss", []uint32{0xFFFFFFFE, 2}, 3, true},
		{"wrap from max with loss", []uint32{math.MaxUint32, 3}, 3, true},
		{"backwards jump", []uint32{10, 5}, math.MaxUint32 - 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d lossDetector
			var lost uint64
			var detected bool
			for _, c := range tt.counts {
				lost, detected = d.observe(c)
			}
			if detected != tt.wantDetected {
				t.Errorf("detected = %v, want %v", detected, tt.wantDetected)
			}
			if lost != tt.wantLost {
				t.Errorf("lost = %d, want %d", lost, tt.wantLost)
			}
		})
	}
}

func TestLossDetector_BaselineFollowsLastCount(t *testing.T) {
	var d lossDetector
	if _, ok := d.baseline(); ok {
		t.Fatal("baseline() ok = true before first observation")
	}

	d.observe(5)
	d.observe(9)
	d.observe(10)

	last, ok := d.baseline()
	if !ok || last != 10 {
		t.Errorf("baseline() = (%d, %v), want (10, true)", last, ok)
	}
}

func TestLossDetector_Reset(t *testing.T) {
	var d lossDetector
	d.observe(5)
	d.reset()

	if lost, detected := d.observe(500); detected {
		t.Errorf("observe after reset detected loss of %d", lost)
	}
	if lost, detected := d.observe(502); !detected || lost != 2 {
		t.Errorf("observe() = (%d, %v), want (2, true)", lost, detected)
	}
}

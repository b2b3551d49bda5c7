package capture

import "math"

// lossReportAdjust is subtracted from the raw measure-count difference before
// it is reported. A difference of N means N-1 profiles are missing; the raw
// difference is reported today, so the adjustment is zero.
const lossReportAdjust = 0

// lossDetector tracks the last measure count seen and flags gaps.
// Measure counts are unsigned 32-bit and wrap from 0xFFFFFFFF to 0.
type lossDetector struct {
	last   uint32
	primed bool
}

// observe records count and returns the number of profiles reported lost
// since the previous observation. The first observation after a reset only
// sets the baseline.
func (d *lossDetector) observe(count uint32) (lost uint64, detected bool) {
	if !d.primed {
		d.last = count
		d.primed = true
		return 0, false
	}

	last := d.last
	d.last = count

	switch {
	case count > last:
		diff := uint64(count) - uint64(last)
		if diff == 1 {
			return 0, false
		}
		return diff - lossReportAdjust, true
	case count < last:
		if uint64(last)-uint64(count) == math.MaxUint32 {
			return 0, false
		}
		return math.MaxUint32 - uint64(last) + uint64(count) - lossReportAdjust, true
	default:
		return 0, false
	}
}

// baseline returns the last observed count and whether one exists.
func (d *lossDetector) baseline() (uint32, bool) {
	return d.last, d.primed
}

func (d *lossDetector) reset() {
	d.last = 0
	d.primed = false
}

package capture

import "sync/atomic"

// counters are updated by the capture goroutine without holding the lock.
type counters struct {
	captured      atomic.Uint64
	intercepted   atomic.Uint64
	overwritten   atomic.Uint64
	fetchFailures atomic.Uint64
	lossEvents    atomic.Uint64
	profilesLost  atomic.Uint64
}

func (c *counters) reset() {
	c.captured.Store(0)
	c.intercepted.Store(0)
	c.overwritten.Store(0)
	c.fetchFailures.Store(0)
	c.lossEvents.Store(0)
	c.profilesLost.Store(0)
}

// Stats is a point-in-time snapshot of a Buffer.
type Stats struct {
	ID            string `json:"id" yaml:"id"`
	State         string `json:"state" yaml:"state"`
	Size          int    `json:"size" yaml:"size"`
	Capacity      int    `json:"capacity" yaml:"capacity"`
	Captured      uint64 `json:"captured" yaml:"captured"`
	Intercepted   uint64 `json:"intercepted" yaml:"intercepted"`
	Overwritten   uint64 `json:"overwritten" yaml:"overwritten"`
	FetchFailures uint64 `json:"fetch_failures" yaml:"fetch_failures"`
	LossEvents    uint64 `json:"loss_events" yaml:"loss_events"`
	ProfilesLost  uint64 `json:"profiles_lost" yaml:"profiles_lost"`
	LastError     string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Utilization returns the fill ratio of the ring between 0 and 1.
func (s Stats) Utilization() float64 {
	if s.Capacity < 2 {
		return 0
	}
	return float64(s.Size) / float64(s.Capacity-1)
}

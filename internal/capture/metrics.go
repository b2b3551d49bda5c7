package capture

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus collectors of one buffer. A nil *metrics is
// valid and records nothing.
type metrics struct {
	captured      prometheus.Counter
	intercepted   prometheus.Counter
	overwritten   prometheus.Counter
	fetchFailures prometheus.Counter
	lossEvents    prometheus.Counter
	profilesLost  prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

// newMetrics creates the collectors for bufferID and registers them with reg.
func newMetrics(reg prometheus.Registerer, bufferID string) (*metrics, error) {
	labels := prometheus.Labels{"buffer": bufferID}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "profilebuffer",
			Subsystem:   "capture",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "profilebuffer",
			Subsystem:   "capture",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &metrics{
		captured:      counter("profiles_captured_total", "Profiles written into the ring"),
		intercepted:   counter("profiles_intercepted_total", "Profiles consumed by the profile handler"),
		overwritten:   counter("profiles_overwritten_total", "Unread profiles dropped because the ring was full"),
		fetchFailures: counter("fetch_failures_total", "Scanner fetches that returned no profile"),
		lossEvents:    counter("loss_events_total", "Measure-count gaps detected"),
		profilesLost:  counter("profiles_lost_total", "Profiles reported lost by the gap detector"),
		size:          gauge("size", "Unread profiles in the ring"),
		utilization:   gauge("utilization", "Ring fill ratio (0.0 to 1.0)"),
	}

	for _, c := range []prometheus.Collector{
		m.captured, m.intercepted, m.overwritten, m.fetchFailures,
		m.lossEvents, m.profilesLost, m.size, m.utilization,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) recordWrite(size, capacity int, dropped bool) {
	if m == nil {
		return
	}
	m.captured.Inc()
	if dropped {
		m.overwritten.Inc()
	}
	m.updateSize(size, capacity)
}

func (m *metrics) recordIntercept() {
	if m == nil {
		return
	}
	m.intercepted.Inc()
}

func (m *metrics) recordFetchFailure() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

func (m *metrics) recordLoss(lost uint64) {
	if m == nil {
		return
	}
	m.lossEvents.Inc()
	m.profilesLost.Add(float64(lost))
}

func (m *metrics) updateSize(size, capacity int) {
	if m == nil {
		return
	}
	m.size.Set(float64(size))
	// One slot always stays free, so a full ring holds capacity-1 profiles.
	m.utilization.Set(float64(size) / float64(capacity-1))
}

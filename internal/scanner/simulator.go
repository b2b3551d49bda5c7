package scanner

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
	"github.com/Iron-Ham/profilebuffer/internal/errors"
	"github.com/Iron-Ham/profilebuffer/internal/logging"
)

// ErrNoProfile is returned when the simulator injects a fetch failure.
var ErrNoProfile = errors.New("no profile available")

// zeroPointStride marks every n-th generated point as invalid.
const zeroPointStride = 7

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// Info is reported by Simulator.Info.
	Info Info
	// Interval is the time between two profiles. Zero produces profiles as
	// fast as they are fetched.
	Interval time.Duration
	// Points is the number of points per profile before zero-point filtering.
	Points int
	// StartCount is the measure count of the first profile.
	StartCount uint32
	// DropRate is the probability (0 to 1) that a profile is skipped,
	// leaving a gap in the measure-count sequence.
	DropRate float64
	// FailureRate is the probability (0 to 1) that a fetch fails.
	FailureRate float64
	// Seed seeds the random source. Equal seeds give equal sequences.
	Seed uint64
}

// DefaultSimulatorConfig returns a 1 kHz simulator with 640 points per profile.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Info: Info{
			Name:         "Simulated scanner",
			SerialNumber: 1000001,
			Address:      "127.0.0.1",
			Firmware:     "sim",
		},
		Interval: time.Millisecond,
		Points:   640,
	}
}

// Validate checks the configuration.
func (c SimulatorConfig) Validate() error {
	switch {
	case c.Interval < 0:
		return errors.NewValidationError("interval must not be negative").WithField("interval").WithValue(c.Interval)
	case c.Points < 0:
		return errors.NewValidationError("points must not be negative").WithField("points").WithValue(c.Points)
	case c.DropRate < 0 || c.DropRate > 1:
		return errors.NewValidationError("drop rate must be between 0 and 1").WithField("drop_rate").WithValue(c.DropRate)
	case c.FailureRate < 0 || c.FailureRate > 1:
		return errors.NewValidationError("failure rate must be between 0 and 1").WithField("failure_rate").WithValue(c.FailureRate)
	}
	return nil
}

// Simulator is a capture.Scanner that produces synthetic profiles on a fixed
// schedule. It is safe for concurrent use, though a buffer only ever calls it
// from one goroutine.
type Simulator struct {
	cfg    SimulatorConfig
	logger *logging.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	count uint32
	due   time.Time
	now   func() time.Time
}

var _ capture.Scanner = (*Simulator)(nil)

// NewSimulator creates a Simulator. A nil logger discards output.
func NewSimulator(cfg SimulatorConfig, logger *logging.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Simulator{
		cfg:    cfg,
		logger: logger.WithScanner(cfg.Info.SerialNumber),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		count:  cfg.StartCount,
		now:    time.Now,
	}, nil
}

// Info returns the identity of the simulated device.
func (s *Simulator) Info() Info {
	return s.cfg.Info
}

// FetchProfile waits for the next scheduled profile and returns it.
//
// With realtime set, profiles whose slot has already passed are skipped, so a
// slow consumer sees gaps in the measure count instead of a growing backlog.
// Without it every scheduled profile is delivered in order.
func (s *Simulator) FetchProfile(ctx context.Context, zeroPoints, realtime bool) (capture.Profile, error) {
	wait := s.schedule(realtime)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.FailureRate > 0 && s.rng.Float64() < s.cfg.FailureRate {
		s.logger.Debug("injected fetch failure", "measure_count", s.count)
		return nil, ErrNoProfile
	}
	if s.cfg.DropRate > 0 && s.rng.Float64() < s.cfg.DropRate {
		s.logger.Debug("injected profile drop", "measure_count", s.count)
		s.count++
	}

	p := s.build(s.count, zeroPoints)
	s.count++
	return p, nil
}

// schedule advances the delivery slot and returns how long to wait for it.
func (s *Simulator) schedule(realtime bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	interval := s.cfg.Interval
	now := s.now()
	if interval <= 0 {
		return 0
	}
	if s.due.IsZero() {
		s.due = now
	}

	if realtime && now.Sub(s.due) >= interval {
		missed := int64(now.Sub(s.due) / interval)
		s.count += uint32(missed)
		s.due = s.due.Add(time.Duration(missed) * interval)
	}

	slot := s.due
	s.due = s.due.Add(interval)
	if wait := slot.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// build generates a profile shaped like a shallow groove. Caller holds mu.
func (s *Simulator) build(count uint32, zeroPoints bool) *Profile {
	points := make([]Point, 0, s.cfg.Points)
	for i := 0; i < s.cfg.Points; i++ {
		x := float32(i) * 0.05
		z := float32(100 + 5*math.Sin(float64(i)/40+float64(count)/100))
		if i%zeroPointStride == zeroPointStride-1 {
			z = 0
		}
		if z == 0 && !zeroPoints {
			continue
		}
		points = append(points, Point{X: x, Z: z})
	}

	return &Profile{
		Header: Header{
			MeasureCount: count,
			SerialNumber: s.cfg.Info.SerialNumber,
			Timestamp:    s.now(),
			PointCount:   len(points),
		},
		Points: points,
	}
}

package capture

import (
	"github.com/Iron-Ham/profilebuffer/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCapacity is the ring capacity used when none is configured.
const DefaultCapacity = 10000

// OptionID identifies a runtime flag of a Buffer.
type OptionID int

const (
	// ZeroPoints asks the scanner to include zero-valued (invalid) points.
	ZeroPoints OptionID = iota
	// Realtime asks the scanner to skip its own buffering. Profiles may be
	// lost but lag behind the device is minimal.
	Realtime
	// LossDetection enables the measure-count gap check on every profile.
	LossDetection
)

// String returns the configuration key of the option.
func (id OptionID) String() string {
	switch id {
	case ZeroPoints:
		return "zero_points"
	case Realtime:
		return "realtime"
	case LossDetection:
		return "loss_detection"
	default:
		return "unknown"
	}
}

// Flags holds the boolean runtime options of a Buffer.
type Flags struct {
	ZeroPoints    bool
	Realtime      bool
	LossDetection bool
}

// DefaultFlags returns the flags a new Buffer starts with.
func DefaultFlags() Flags {
	return Flags{ZeroPoints: true}
}

func (f *Flags) get(id OptionID) (bool, bool) {
	switch id {
	case ZeroPoints:
		return f.ZeroPoints, true
	case Realtime:
		return f.Realtime, true
	case LossDetection:
		return f.LossDetection, true
	default:
		return false, false
	}
}

func (f *Flags) set(id OptionID, value bool) bool {
	switch id {
	case ZeroPoints:
		f.ZeroPoints = value
	case Realtime:
		f.Realtime = value
	case LossDetection:
		f.LossDetection = value
	default:
		return false
	}
	return true
}

// Option configures a Buffer at construction time.
type Option func(*bufferOptions)

type bufferOptions struct {
	id         string
	logger     *logging.Logger
	registerer prometheus.Registerer
	backoff    Backoff
	flags      Flags
}

// WithID sets the buffer ID used in logs and metric labels.
// A random UUID is used when unset.
func WithID(id string) Option {
	return func(o *bufferOptions) {
		o.id = id
	}
}

// WithLogger sets the logger. Buffers log nothing by default.
func WithLogger(logger *logging.Logger) Option {
	return func(o *bufferOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics registers the buffer's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *bufferOptions) {
		o.registerer = reg
	}
}

// WithFetchBackoff sets the delay applied after consecutive fetch failures.
// The zero Backoff retries immediately.
func WithFetchBackoff(b Backoff) Option {
	return func(o *bufferOptions) {
		o.backoff = b
	}
}

// WithFlags sets the initial runtime flags.
func WithFlags(f Flags) Option {
	return func(o *bufferOptions) {
		o.flags = f
	}
}

func applyOptions(opts ...Option) *bufferOptions {
	o := &bufferOptions{
		flags: DefaultFlags(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

package capture

import "context"

// Profile is a single measurement handed out by a Scanner. The buffer only
// reads the sequence number; everything else is opaque to it.
type Profile interface {
	MeasureCount() uint32
}

// Scanner produces profiles.
//
// FetchProfile blocks until a profile is available or ctx is cancelled. A nil
// profile or a non-nil error is treated as a transient fetch failure; the
// capture loop reports it and fetches again.
type Scanner interface {
	FetchProfile(ctx context.Context, zeroPoints, realtime bool) (Profile, error)
}

// ScannerFunc adapts an ordinary function to the Scanner interface.
type ScannerFunc func(ctx context.Context, zeroPoints, realtime bool) (Profile, error)

// FetchProfile calls f.
func (f ScannerFunc) FetchProfile(ctx context.Context, zeroPoints, realtime bool) (Profile, error) {
	return f(ctx, zeroPoints, realtime)
}

// Disposition is the outcome of offering a profile to a ProfileHandler.
type Disposition int

const (
	// PassThrough stores the profile in the ring.
	PassThrough Disposition = iota
	// Consumed means the handler took ownership; the profile is not stored.
	Consumed
)

// String returns a human-readable name for the disposition.
func (d Disposition) String() string {
	switch d {
	case PassThrough:
		return "pass_through"
	case Consumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// ProfileHandler intercepts profiles on the capture goroutine before they are
// stored. It runs outside the buffer lock and may call Buffer methods other
// than Stop and Close, which wait for the capture goroutine to exit. A slow
// handler delays the next fetch and any pending Stop.
type ProfileHandler func(p Profile) Disposition

// ErrorHandler receives every error the buffer reports. Returning true marks
// the error as handled and leaves the last-error slot untouched.
//
// The handler may run on the capture goroutine, so the same restriction as
// for ProfileHandler applies: it must not call Stop or Close.
type ErrorHandler func(err error) bool

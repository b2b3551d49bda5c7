// Package testutil provides test doubles and helpers shared by profilebuffer tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/profilebuffer/internal/capture"
)

// Profile is a minimal capture.Profile carrying only a measure count.
type Profile struct {
	Count uint32
}

// MeasureCount implements capture.Profile.
func (p Profile) MeasureCount() uint32 {
	return p.Count
}

// Counts returns the measure counts of profiles, in order.
func Counts(profiles []capture.Profile) []uint32 {
	out := make([]uint32, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.MeasureCount())
	}
	return out
}

// ErrScannerFault is returned by FeedScanner.Fail when no error is given.
var ErrScannerFault = errors.New("scanner fault")

type fetchResult struct {
	profile capture.Profile
	err     error
}

// FeedScanner is a capture.Scanner driven by the test. Every FetchProfile call
// blocks until the test feeds a result or the context is cancelled.
type FeedScanner struct {
	results chan fetchResult

	mu      sync.Mutex
	fetches int
	lastZP  bool
	lastRT  bool
}

// NewFeedScanner creates a FeedScanner.
func NewFeedScanner() *FeedScanner {
	return &FeedScanner{results: make(chan fetchResult)}
}

// FetchProfile implements capture.Scanner.
func (s *FeedScanner) FetchProfile(ctx context.Context, zeroPoints, realtime bool) (capture.Profile, error) {
	s.mu.Lock()
	s.fetches++
	s.lastZP, s.lastRT = zeroPoints, realtime
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-s.results:
		return r.profile, r.err
	}
}

// Feed hands profiles with the given measure counts to the capture goroutine,
// one per fetch. It fails the test if a fetch does not arrive in time.
func (s *FeedScanner) Feed(t testing.TB, counts ...uint32) {
	t.Helper()
	for _, c := range counts {
		s.send(t, fetchResult{profile: Profile{Count: c}})
	}
}

// Fail makes the next fetch return err, or ErrScannerFault if err is nil.
func (s *FeedScanner) Fail(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		err = ErrScannerFault
	}
	s.send(t, fetchResult{err: err})
}

// Empty makes the next fetch return neither a profile nor an error.
func (s *FeedScanner) Empty(t testing.TB) {
	t.Helper()
	s.send(t, fetchResult{})
}

func (s *FeedScanner) send(t testing.TB, r fetchResult) {
	t.Helper()
	select {
	case s.results <- r:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the capture goroutine to fetch")
	}
}

// Fetches returns the number of FetchProfile calls so far.
func (s *FeedScanner) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// LastFlags returns the zeroPoints and realtime arguments of the latest fetch.
func (s *FeedScanner) LastFlags() (zeroPoints, realtime bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastZP, s.lastRT
}

// SequenceScanner returns profiles with consecutive measure counts as fast as
// it is asked. It never blocks.
type SequenceScanner struct {
	mu   sync.Mutex
	next uint32
}

// NewSequenceScanner creates a SequenceScanner whose first profile has count start.
func NewSequenceScanner(start uint32) *SequenceScanner {
	return &SequenceScanner{next: start}
}

// FetchProfile implements capture.Scanner.
func (s *SequenceScanner) FetchProfile(ctx context.Context, _, _ bool) (capture.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Profile{Count: s.next}
	s.next++
	return p, nil
}

// ErrorRecorder is a capture.ErrorHandler that keeps every error it sees.
type ErrorRecorder struct {
	mu      sync.Mutex
	errs    []error
	Consume bool
}

// Handle implements capture.ErrorHandler.
func (r *ErrorRecorder) Handle(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	return r.Consume
}

// Errors returns a copy of the recorded errors.
func (r *ErrorRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Count returns the number of recorded errors matching target.
func (r *ErrorRecorder) Count(target error) int {
	n := 0
	for _, err := range r.Errors() {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out after %v: %s", timeout, msg)
}

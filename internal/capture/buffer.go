package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/profilebuffer/internal/errors"
	"github.com/Iron-Ham/profilebuffer/internal/logging"
)

// fetchFailureLogThreshold is the streak length at which consecutive fetch
// failures are logged at error level. Failures between the first and the
// threshold are logged at debug level only.
const fetchFailureLogThreshold = 100

// Buffer is a fixed-capacity ring of profiles filled by a background capture
// goroutine. See the package documentation for the lifecycle and error model.
type Buffer struct {
	id      string
	logger  *logging.Logger
	metrics *metrics
	backoff Backoff

	mu        sync.Mutex
	ring      *ring
	state     State
	flags     Flags
	loss      lossDetector
	scanner   Scanner
	onProfile ProfileHandler
	onError   ErrorHandler
	lastErr   error
	cancel    context.CancelFunc
	wg        *conc.WaitGroup

	counters counters
}

// New creates an idle buffer holding up to capacity-1 unread profiles.
// Capacity must be at least 2.
func New(capacity int, opts ...Option) (*Buffer, error) {
	if capacity < 2 {
		return nil, errors.NewValidationError("capacity must be at least 2").
			WithField("capacity").WithValue(capacity)
	}

	o := applyOptions(opts...)
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}

	b := &Buffer{
		id:      o.id,
		logger:  o.logger.WithBuffer(o.id),
		backoff: o.backoff,
		ring:    newRing(capacity),
		flags:   o.flags,
	}

	if o.registerer != nil {
		m, err := newMetrics(o.registerer, o.id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register buffer metrics")
		}
		b.metrics = m
		m.updateSize(0, capacity)
	}

	b.logger.Debug("buffer created",
		"capacity", capacity,
		"zero_points", o.flags.ZeroPoints,
		"realtime", o.flags.Realtime,
		"loss_detection", o.flags.LossDetection,
	)
	return b, nil
}

// ID returns the buffer identifier.
func (b *Buffer) ID() string {
	return b.id
}

// State returns the current lifecycle state.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Capacity returns the number of slots in the ring, or 0 after Close.
func (b *Buffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ring == nil {
		return 0
	}
	return b.ring.capacity()
}

// SetScanner attaches the profile source. The scanner can only be replaced
// while the buffer is idle.
func (b *Buffer) SetScanner(s Scanner) error {
	b.mu.Lock()
	switch b.state {
	case StateIdle:
		b.scanner = s
		b.mu.Unlock()
		return nil
	case StateClosed:
		b.mu.Unlock()
		return b.fail(errors.ErrBufferClosed)
	default:
		b.mu.Unlock()
		return b.fail(errors.ErrCapturing)
	}
}

// SetProfileHandler installs the interceptor called for every fetched profile.
// A nil handler stores every profile.
func (b *Buffer) SetProfileHandler(h ProfileHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onProfile = h
}

// SetErrorHandler installs the error sink. A nil handler records every error
// in the last-error slot.
func (b *Buffer) SetErrorHandler(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// SetOption sets a runtime flag. A change made while capturing takes effect on
// the next fetch.
func (b *Buffer) SetOption(id OptionID, value bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.flags.set(id, value) {
		return errors.NewValidationError("cannot set option").
			WithField("option").WithValue(int(id)).WithCause(errors.ErrUnknownOption)
	}
	return nil
}

// GetOption returns the current value of a runtime flag.
func (b *Buffer) GetOption(id OptionID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.flags.get(id)
	if !ok {
		return false, errors.NewValidationError("cannot get option").
			WithField("option").WithValue(int(id)).WithCause(errors.ErrUnknownOption)
	}
	return v, nil
}

// Flags returns a copy of all runtime flags.
func (b *Buffer) Flags() Flags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags
}

// Start spawns the capture goroutine.
func (b *Buffer) Start() error {
	b.mu.Lock()
	switch {
	case b.state == StateClosed:
		b.mu.Unlock()
		return b.fail(errors.ErrBufferClosed)
	case b.state != StateIdle:
		b.mu.Unlock()
		return b.fail(errors.ErrAlreadyRunning)
	case b.scanner == nil:
		b.mu.Unlock()
		return b.fail(errors.ErrScannerNotSet)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.state = StateCapturing
	b.wg = conc.NewWaitGroup()
	scanner := b.scanner
	b.wg.Go(func() { b.capture(ctx, scanner) })
	b.mu.Unlock()

	b.logger.Info("capture started")
	return nil
}

// Stop cancels the capture goroutine and waits for it to exit. Profiles
// already in the ring are kept.
func (b *Buffer) Stop() error {
	b.mu.Lock()
	if b.state != StateCapturing {
		b.mu.Unlock()
		return b.fail(errors.ErrNotRunning)
	}
	b.state = StateStopping
	cancel, wg := b.cancel, b.wg
	b.mu.Unlock()

	b.halt(cancel, wg)
	b.logger.Info("capture stopped", "size", b.Size())
	return nil
}

// halt cancels and joins the capture goroutine. Caller must have moved the
// state to StateStopping and must not hold the lock.
func (b *Buffer) halt(cancel context.CancelFunc, wg *conc.WaitGroup) {
	cancel()
	wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateStopping {
		b.state = StateIdle
	}
	b.cancel = nil
	b.wg = nil
	b.loss.reset()
}

// Close stops capture if it is running and releases the ring. Further reads
// return nothing and Start fails with ErrBufferClosed. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateCapturing:
		b.state = StateStopping
		cancel, wg := b.cancel, b.wg
		b.mu.Unlock()
		b.halt(cancel, wg)
		b.mu.Lock()
	case StateStopping:
		// A concurrent Stop owns the join; wait for the same goroutine.
		wg := b.wg
		b.mu.Unlock()
		wg.Wait()
		b.mu.Lock()
	}
	if b.state == StateClosed {
		b.mu.Unlock()
		return nil
	}

	capacity := b.ring.capacity()
	b.state = StateClosed
	b.ring = nil
	b.scanner = nil
	b.mu.Unlock()

	b.metrics.updateSize(0, capacity)
	b.logger.Debug("buffer closed")
	return nil
}

// Size returns the number of unread profiles.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ring == nil {
		return 0
	}
	return b.ring.len()
}

// Front removes and returns the oldest unread profile.
func (b *Buffer) Front() (Profile, error) {
	return b.pop((*ring).popFront)
}

// Back removes and returns the newest unread profile.
func (b *Buffer) Back() (Profile, error) {
	return b.pop((*ring).popBack)
}

func (b *Buffer) pop(take func(*ring) (Profile, bool)) (Profile, error) {
	b.mu.Lock()
	if b.ring == nil {
		b.mu.Unlock()
		return nil, b.fail(errors.ErrBufferClosed)
	}
	p, ok := take(b.ring)
	size, capacity := b.ring.len(), b.ring.capacity()
	b.mu.Unlock()

	if !ok {
		return nil, b.fail(errors.ErrBufferEmpty)
	}
	b.metrics.updateSize(size, capacity)
	return p, nil
}

// All removes and returns every unread profile, oldest first. It returns an
// empty slice when the buffer is empty and nil after Close.
func (b *Buffer) All() []Profile {
	b.mu.Lock()
	if b.ring == nil {
		b.mu.Unlock()
		return nil
	}
	out := b.ring.drain()
	capacity := b.ring.capacity()
	b.mu.Unlock()

	b.metrics.updateSize(0, capacity)
	return out
}

// Clear discards all unread profiles and forgets the last measure count, so
// the next profile does not trigger a loss report.
func (b *Buffer) Clear() {
	b.mu.Lock()
	if b.ring == nil {
		b.mu.Unlock()
		return
	}
	b.ring.reset()
	b.loss.reset()
	capacity := b.ring.capacity()
	b.mu.Unlock()

	b.metrics.updateSize(0, capacity)
}

// ErrorInfo returns the message of the last unhandled error, or "" if none.
func (b *Buffer) ErrorInfo() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastErr == nil {
		return ""
	}
	return b.lastErr.Error()
}

// LastError returns the last unhandled error.
func (b *Buffer) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	s := Stats{
		ID:    b.id,
		State: b.state.String(),
	}
	if b.ring != nil {
		s.Size = b.ring.len()
		s.Capacity = b.ring.capacity()
	}
	if b.lastErr != nil {
		s.LastError = b.lastErr.Error()
	}
	b.mu.Unlock()

	s.Captured = b.counters.captured.Load()
	s.Intercepted = b.counters.intercepted.Load()
	s.Overwritten = b.counters.overwritten.Load()
	s.FetchFailures = b.counters.fetchFailures.Load()
	s.LossEvents = b.counters.lossEvents.Load()
	s.ProfilesLost = b.counters.profilesLost.Load()
	return s
}

// ResetStats zeroes the counters reported by Stats.
func (b *Buffer) ResetStats() {
	b.counters.reset()
}

// capture is the body of the capture goroutine.
func (b *Buffer) capture(ctx context.Context, scanner Scanner) {
	var pc panics.Catcher
	pc.Try(func() { b.captureLoop(ctx, scanner) })

	if r := pc.Recovered(); r != nil {
		b.logger.Error("capture goroutine panicked", "panic", fmt.Sprint(r.Value))
		b.deliver(errors.NewCaptureError(fmt.Sprintf("capture loop aborted: %v", r.Value), errors.ErrCapturePanic).
			WithBufferID(b.id).
			WithOp("capture").
			WithSeverity(errors.SeverityCritical))
	}
}

func (b *Buffer) captureLoop(ctx context.Context, scanner Scanner) {
	failures := 0

	for ctx.Err() == nil {
		b.mu.Lock()
		flags, onProfile := b.flags, b.onProfile
		b.mu.Unlock()

		p, err := scanner.FetchProfile(ctx, flags.ZeroPoints, flags.Realtime)
		if err != nil || p == nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			b.fetchFailed(err, failures)
			if !b.backoff.wait(ctx, failures) {
				return
			}
			continue
		}
		if failures > 0 {
			b.logger.Debug("scanner recovered", "failures", failures)
			failures = 0
		}

		if flags.LossDetection {
			b.checkLoss(p.MeasureCount())
		}

		if onProfile != nil && onProfile(p) == Consumed {
			b.counters.intercepted.Add(1)
			b.metrics.recordIntercept()
			continue
		}

		if !b.store(p) {
			return
		}
	}
}

func (b *Buffer) fetchFailed(cause error, failures int) {
	b.counters.fetchFailures.Add(1)
	b.metrics.recordFetchFailure()

	err := errors.ErrFetchFailed
	if cause != nil {
		err = fmt.Errorf("%w: %w", errors.ErrFetchFailed, cause)
	}

	switch {
	case failures == 1:
		b.logger.Warn("profile not received", "error", err.Error())
	case failures == fetchFailureLogThreshold:
		b.logger.Error("scanner keeps failing", "failures", failures, "error", err.Error())
	default:
		b.logger.Debug("profile not received", "failures", failures, "error", err.Error())
	}
	b.deliver(err)
}

func (b *Buffer) checkLoss(count uint32) {
	b.mu.Lock()
	prev, _ := b.loss.baseline()
	lost, detected := b.loss.observe(count)
	b.mu.Unlock()

	if !detected {
		return
	}
	b.counters.lossEvents.Add(1)
	b.counters.profilesLost.Add(lost)
	b.metrics.recordLoss(lost)
	b.report(errors.NewLossError(lost, prev, count))
}

// store appends p to the ring. It returns false if capture was stopped while
// p was being fetched, in which case p is discarded.
func (b *Buffer) store(p Profile) bool {
	b.mu.Lock()
	if b.state != StateCapturing {
		b.mu.Unlock()
		return false
	}
	dropped := b.ring.push(p)
	size, capacity := b.ring.len(), b.ring.capacity()
	b.mu.Unlock()

	b.counters.captured.Add(1)
	if dropped {
		b.counters.overwritten.Add(1)
	}
	b.metrics.recordWrite(size, capacity, dropped)
	return true
}

// fail reports err and returns it.
func (b *Buffer) fail(err error) error {
	b.report(err)
	return err
}

// report logs err at the level matching its severity and delivers it.
func (b *Buffer) report(err error) {
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug:
		b.logger.Debug("buffer error", "error", err.Error())
	case errors.SeverityInfo:
		b.logger.Info("buffer error", "error", err.Error())
	case errors.SeverityWarning:
		b.logger.Warn("buffer error", "error", err.Error())
	default:
		b.logger.Error("buffer error", "error", err.Error())
	}
	b.deliver(err)
}

// deliver offers err to the error handler and records it in the last-error
// slot unless the handler consumed it. The handler runs without the lock.
func (b *Buffer) deliver(err error) {
	b.mu.Lock()
	h := b.onError
	b.mu.Unlock()

	if h != nil && h(err) {
		return
	}

	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

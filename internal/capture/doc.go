// Package capture buffers profiles produced by a scanner so a consumer can read
// them at its own pace.
//
// A [Buffer] owns a fixed-capacity ring of profiles and, while capturing, one
// goroutine that pulls profiles from a [Scanner] and writes them into the ring.
// When the ring is full the oldest unread profile is overwritten, so a slow
// consumer loses the oldest data rather than stalling the producer.
//
// # Main Types
//
//   - [Buffer]: the ring, the capture goroutine and the error channel
//   - [Scanner]: the producer; FetchProfile blocks until a profile arrives
//   - [Profile]: anything carrying a 32-bit measure count
//   - [ProfileHandler]: optional interceptor that may consume a profile
//   - [ErrorHandler]: optional sink for errors reported by the buffer
//
// # Lifecycle
//
// A buffer moves through [StateIdle], [StateCapturing] and [StateStopping].
// Start spawns the capture goroutine; Stop cancels it and waits for it to
// exit. Close stops capture if needed and releases the ring; a closed buffer
// cannot be restarted.
//
// Stop is cooperative. The context passed to FetchProfile is cancelled, but a
// scanner or handler that ignores cancellation delays Stop until it returns.
// Nothing in this package applies a timeout on its own.
//
// # Error Channel
//
// Faults seen by the capture goroutine (missing profiles, sequence gaps) are
// never returned to a caller. They are offered to the [ErrorHandler]; if the
// handler does not consume them they replace the last error, readable through
// [Buffer.ErrorInfo]. Caller-side failures such as reading an empty buffer are
// both returned and reported.
//
// # Thread Safety
//
// All Buffer methods are safe for concurrent use. Ring state, options and the
// last error are guarded by one mutex; scanner fetches and handler callbacks
// run outside it.
//
// # Basic Usage
//
//	buf, err := capture.New(capture.DefaultCapacity, capture.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer buf.Close()
//
//	_ = buf.SetScanner(scn)
//	_ = buf.SetOption(capture.LossDetection, true)
//	if err := buf.Start(); err != nil {
//	    return err
//	}
//	time.Sleep(3 * time.Second)
//	_ = buf.Stop()
//
//	for _, p := range buf.All() {
//	    fmt.Println(p.MeasureCount())
//	}
package capture

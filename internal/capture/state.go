package capture

// State is the lifecycle state of a Buffer.
type State int

const (
	// StateIdle means no capture goroutine exists.
	StateIdle State = iota

	// StateCapturing means the capture goroutine is running.
	StateCapturing

	// StateStopping means Stop has cancelled the goroutine and is waiting for it.
	StateStopping

	// StateClosed means the buffer was closed and its ring released.
	StateClosed
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Package errors provides centralized error definitions and error handling utilities
// for the profile buffer. It defines the capture error kinds, typed errors that carry
// buffer context, and classification helpers used by logging and the error channel.
//
// # Error Types
//
// Sentinel errors name the error kinds a buffer reports:
//   - ErrAlreadyRunning, ErrNotRunning: lifecycle misuse
//   - ErrBufferEmpty: a read on an empty ring
//   - ErrFetchFailed: the scanner returned no profile (transient)
//   - ErrProfileLoss: a gap in the measure-count sequence (informational)
//   - ErrUnknownOption: an option id outside the known set
//
// Typed errors add context:
//   - CaptureError: an error tied to a buffer and an operation
//   - LossError: a detected sequence gap with the lost count
//   - ValidationError: invalid construction or configuration input
//
// # Usage
//
//	if errors.Is(err, errors.ErrBufferEmpty) { ... }
//
//	var loss *errors.LossError
//	if errors.As(err, &loss) {
//	    fmt.Println(loss.Lost)
//	}
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Capture lifecycle sentinel errors
var (
	// ErrAlreadyRunning indicates Start was called while a capture goroutine exists.
	ErrAlreadyRunning = New("capture thread already running")
	// ErrNotRunning indicates Stop was called without a running capture goroutine.
	ErrNotRunning = New("capture thread not running")
	// ErrCapturing indicates the scanner cannot be replaced while capturing.
	ErrCapturing = New("scanner cannot be replaced while capturing")
	// ErrScannerNotSet indicates Start was called before a scanner was set.
	ErrScannerNotSet = New("scanner has not been set")
	// ErrBufferClosed indicates the buffer was used after Close.
	ErrBufferClosed = New("buffer is closed")
	// ErrCapturePanic indicates the capture goroutine panicked.
	ErrCapturePanic = New("capture goroutine panicked")
)

// Ring and data-path sentinel errors
var (
	// ErrBufferEmpty indicates a read on a buffer with no unread profiles.
	ErrBufferEmpty = New("buffer is empty")
	// ErrFetchFailed indicates the scanner did not return a profile.
	ErrFetchFailed = New("profile not received")
	// ErrProfileLoss indicates a gap in the measure-count sequence.
	ErrProfileLoss = New("profile loss detected")
	// ErrUnknownOption indicates an option id outside the known set.
	ErrUnknownOption = New("unknown option")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BufferError is the base interface for typed profile buffer errors.
type BufferError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CaptureError represents an error raised by a specific buffer operation.
//
// Example:
//
//	err := errors.NewCaptureError("capture loop aborted", errors.ErrCapturePanic).
//	    WithBufferID("b-1").WithOp("capture")
//	fmt.Println(err) // "capture error [buffer=b-1, op=capture]: capture loop aborted: capture goroutine panicked"
type CaptureError struct {
	baseError
	BufferID string
	Op       string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithBufferID adds a buffer ID to the error context.
func (e *CaptureError) WithBufferID(id string) *CaptureError {
	e.BufferID = id
	return e
}

// WithOp adds the failing operation to the error context.
func (e *CaptureError) WithOp(op string) *CaptureError {
	e.Op = op
	return e
}

// WithSeverity sets the error severity.
func (e *CaptureError) WithSeverity(s Severity) *CaptureError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *CaptureError) WithRetryable(r bool) *CaptureError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	var parts []string
	if e.BufferID != "" {
		parts = append(parts, fmt.Sprintf("buffer=%s", e.BufferID))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	prefix := "capture error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("capture error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// LossError reports a gap in the measure-count sequence.
// It matches ErrProfileLoss under errors.Is.
type LossError struct {
	// Lost is the number of profiles reported as lost.
	Lost uint64
	// Previous and Current are the measure counts on either side of the gap.
	Previous uint32
	Current  uint32
}

// NewLossError creates a LossError for the gap between previous and current.
func NewLossError(lost uint64, previous, current uint32) *LossError {
	return &LossError{Lost: lost, Previous: previous, Current: current}
}

// Error returns the formatted error message.
func (e *LossError) Error() string {
	return fmt.Sprintf("%s: lost %d", ErrProfileLoss.Error(), e.Lost)
}

// Is checks if this error matches the target.
func (e *LossError) Is(target error) bool {
	if target == ErrProfileLoss {
		return true
	}
	_, ok := target.(*LossError)
	return ok
}

// Unwrap returns nil; a LossError has no underlying cause.
func (e *LossError) Unwrap() error { return nil }

// Severity returns SeverityWarning. Loss is informational and never stops capture.
func (e *LossError) Severity() Severity { return SeverityWarning }

// IsRetryable returns false.
func (e *LossError) IsRetryable() bool { return false }

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("capacity must be at least 2").
//	    WithField("capacity").WithValue(1)
type ValidationError struct {
	Message string
	Field   string
	Value   any
	cause   error
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// WithField sets the name of the invalid field.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the invalid value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause sets the underlying cause.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation error")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Value != nil {
		sb.WriteString(fmt.Sprintf(" (got: %v)", e.Value))
	}
	if e.cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the failed operation
// may succeed when attempted again. Fetch failures are retryable; everything the
// caller did wrong (lifecycle misuse, unknown options, validation) is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bufErr BufferError
	if As(err, &bufErr) {
		return bufErr.IsRetryable()
	}

	return Is(err, ErrFetchFailed)
}

// GetSeverity returns the severity level of the error.
// Typed errors report their own severity; known sentinels are mapped, and
// anything else defaults to SeverityError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var bufErr BufferError
	if As(err, &bufErr) {
		return bufErr.Severity()
	}

	switch {
	case Is(err, ErrBufferEmpty):
		return SeverityDebug
	case Is(err, ErrFetchFailed):
		return SeverityInfo
	case Is(err, ErrProfileLoss), Is(err, ErrAlreadyRunning), Is(err, ErrNotRunning):
		return SeverityWarning
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to start capture")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to open scanner %d", serial)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

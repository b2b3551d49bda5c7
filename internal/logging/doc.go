// Package logging provides structured logging for profile buffers and the
// profilebuffer command.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes, so the events of several buffers or
// scanners written to one file can be told apart afterwards.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context attributes (buffer ID, scanner serial)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The capture
// goroutine of a buffer logs through the same [Logger] as the caller
// goroutines. [RotatingWriter] serializes writes and rotation with a mutex.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/profilebuffer", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	bufLogger := logger.WithBuffer(buf.ID())
//	bufLogger.Info("capture started", "capacity", 10000)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"capture started","buffer_id":"...","capacity":10000}
//
// # Log Rotation
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	}
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", config)
//
// Rotated files are named profilebuffer.log.1, profilebuffer.log.2, etc.,
// where .1 is the most recent backup.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] to capture it:
//
//	var buf bytes.Buffer
//	logger := logging.NewWriterLogger(&buf, logging.LevelDebug)
package logging

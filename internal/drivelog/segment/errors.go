package segment

import (
	"errors"
	"fmt"
)

var (
	// Lifecycle errors
	ErrNotOpen = errors.New("segment: no open segment")
	ErrClosed  = errors.New("segment: logger closed")

	// Rotation failures; a failed rotation leaves the previous segment open.
	ErrDirCreate = errors.New("segment: create segment dir failed")
	ErrLockWrite = errors.New("segment: create lock artifact failed")
	ErrOpenLog   = errors.New("segment: open log stream failed")
	ErrInitWrite = errors.New("segment: write init block failed")

	// Write-time I/O failures
	ErrWriteFailed = errors.New("segment: write failed")
	ErrCloseFailed = errors.New("segment: close failed")
)

// LoggerError wraps segment-logger failures with context.
// It preserves a stable sentinel in Err so callers can errors.Is against it.
type LoggerError struct {
	Err error

	Route string
	Part  int

	// Op is a short label for where the error occurred:
	// "rotate", "write", "close", etc.
	Op string

	Cause error
}

func (e *LoggerError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *LoggerError) Unwrap() error { return e.Err }

// CauseErr returns the underlying cause (not used by errors.Is).
func (e *LoggerError) CauseErr() error { return e.Cause }

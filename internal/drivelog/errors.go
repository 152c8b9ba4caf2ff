package drivelog

import "errors"

var (
	ErrSourceFailed = errors.New("drivelog: source failed")
	ErrFrameTooBig  = errors.New("drivelog: frame exceeds size limit")
	ErrFrameShort   = errors.New("drivelog: truncated frame")
)

// RunError wraps recorder-loop failures with context.
type RunError struct {
	Err   error
	Op    string // "next", "rotate", "write"
	Cause error
}

func (e *RunError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error { return e.Err }

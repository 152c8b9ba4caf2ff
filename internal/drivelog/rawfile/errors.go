package rawfile

import "errors"

var (
	// I/O layer failures
	ErrOpenFailed   = errors.New("rawfile: open failed")
	ErrEncoderInit  = errors.New("rawfile: compression encoder init failed")
	ErrAppendFailed = errors.New("rawfile: append failed")
	ErrCloseFailed  = errors.New("rawfile: close failed")

	// Lifecycle errors
	ErrClosedWriter = errors.New("rawfile: writer closed")
)

// WriterError wraps writer failures with context.
// It preserves a stable sentinel in Err so callers can errors.Is against it.
type WriterError struct {
	Err   error
	Path  string
	Have  int // bytes written before the failure
	Want  int // bytes requested
	Cause error
}

func (e *WriterError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Path
}

func (e *WriterError) Unwrap() error { return e.Err }

// CauseErr returns the underlying cause (not used by errors.Is).
func (e *WriterError) CauseErr() error { return e.Cause }

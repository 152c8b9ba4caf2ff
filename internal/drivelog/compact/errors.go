package compact

import "errors"

var (
	ErrScanFailed     = errors.New("compact: scan failed")
	ErrStaleRemove    = errors.New("compact: remove stale artifact failed")
	ErrCompressFailed = errors.New("compact: compress failed")
	ErrInterrupted    = errors.New("compact: interrupted")
)

// CompactError wraps a compaction failure with the file it concerned.
type CompactError struct {
	Err   error
	Path  string
	Cause error
}

func (e *CompactError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Path
}

func (e *CompactError) Unwrap() error { return e.Err }

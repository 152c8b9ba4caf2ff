package record

import "errors"

var (
	ErrCodecTruncated = errors.New("record: truncated")
	ErrCodecCorrupt   = errors.New("record: corrupt")
	ErrCodecInvalid   = errors.New("record: invalid")
)

type CodecKind int

const (
	CodecTruncated CodecKind = iota + 1
	CodecCorrupt
	CodecInvalid
)

// CodecError describes an encode/decode failure with enough positional
// context for a caller to report which field of the init block was bad.
type CodecError struct {
	Kind  CodecKind
	Field string
	At    int
	Want  int
	Have  int
	Err   error
}

func (e *CodecError) Error() string { return e.Err.Error() + ": " + e.Field }
func (e *CodecError) Unwrap() error { return e.Err }

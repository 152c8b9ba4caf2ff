package drivelog

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// Record is one opaque unit to persist, tagged with the curated-stream flag.
type Record struct {
	Data      []byte
	InCurated bool
}

// Source yields records in delivery order. Next returns io.EOF when the
// producer is done. The message bus supplying records stays outside this
// module; anything that can hand over (bytes, curated) pairs is a Source.
type Source interface {
	Next(ctx context.Context) (Record, error)
}

const (
	// curatedFlag marks a frame for the curated stream; the remaining bits
	// are the payload length.
	curatedFlag uint32 = 1 << 31

	// MaxFrameSize bounds a single framed record.
	MaxFrameSize = 64 << 20
)

// FrameSource reads length-prefixed records from a byte stream, typically
// stdin. Frame: 4-byte little-endian length with the high bit set for
// curated records, then the payload.
type FrameSource struct {
	r       *bufio.Reader
	results chan frameResult
	started bool
}

type frameResult struct {
	rec Record
	err error
}

func NewFrameSource(r io.Reader) *FrameSource {
	return &FrameSource{
		r:       bufio.NewReader(r),
		results: make(chan frameResult),
	}
}

// Next returns the next frame. The read runs on a dedicated goroutine so a
// canceled context unblocks the caller even when the stream goes quiet; a
// read already in flight is abandoned to that goroutine.
func (s *FrameSource) Next(ctx context.Context) (Record, error) {
	if !s.started {
		s.started = true
		go s.readLoop()
	}

	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case res, ok := <-s.results:
		if !ok {
			return Record{}, io.EOF
		}
		return res.rec, res.err
	}
}

// readLoop feeds frames to Next until the first error, which is delivered
// once; later calls see io.EOF from the closed channel.
func (s *FrameSource) readLoop() {
	for {
		rec, err := s.readFrame()
		s.results <- frameResult{rec: rec, err: err}
		if err != nil {
			close(s.results)
			return
		}
	}
}

func (s *FrameSource) readFrame() (Record, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, &RunError{Err: ErrFrameShort, Op: "next", Cause: err}
	}

	n := binary.LittleEndian.Uint32(hdr[:])
	curated := n&curatedFlag != 0
	n &^= curatedFlag
	if n > MaxFrameSize {
		return Record{}, &RunError{
			Err:   ErrFrameTooBig,
			Op:    "next",
			Cause: fmt.Errorf("frame of %d bytes exceeds %d", n, MaxFrameSize),
		}
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(s.r, data); err != nil {
		return Record{}, &RunError{Err: ErrFrameShort, Op: "next", Cause: err}
	}
	return Record{Data: data, InCurated: curated}, nil
}

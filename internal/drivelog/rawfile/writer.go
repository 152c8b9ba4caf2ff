package rawfile

import (
	"bufio"
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/dsnet/compress/bzip2"
)

const (
	writerBufferSize = 64 << 10 // 64KiB

	// CompressedSuffix is appended to the path of a compressed stream.
	CompressedSuffix = ".bz2"

	// bzip2 level 9 (900 kB blocks), same settings on every run so a
	// compressed stream is reproducible from the same input.
	compressionLevel = 9

	// maxStalledRetries bounds consecutive zero-progress retries of a
	// transient error. bufio.Writer latches a surfaced error and returns
	// (0, err) on every later call, so a latched transient must go fatal.
	maxStalledRetries = 8
)

// Writer appends opaque byte buffers to a single file, optionally through a
// streaming bzip2 encoder. The mode is fixed at open time. A Writer has
// exactly one owner; Write and Close must be called serially.
type Writer struct {
	file *os.File
	buf  *bufio.Writer // raw mode
	bz   *bzip2.Writer // compressed mode
	sink io.Writer

	path   string
	closed bool
}

// Open creates (or truncates) the file at path and prepares it for append.
// In compressed mode the on-disk path gets the CompressedSuffix and every
// buffer is routed through a bzip2 encoder.
func Open(path string, compress bool) (*Writer, error) {
	if compress {
		path += CompressedSuffix
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return nil, &WriterError{Err: ErrOpenFailed, Path: path, Cause: err}
	}

	w := &Writer{file: file, path: path}
	if compress {
		bz, err := bzip2.NewWriter(file, &bzip2.WriterConfig{Level: compressionLevel})
		if err != nil {
			_ = file.Close()
			_ = os.Remove(path)
			return nil, &WriterError{Err: ErrEncoderInit, Path: path, Cause: err}
		}
		w.bz = bz
		w.sink = bz
	} else {
		w.buf = bufio.NewWriterSize(file, writerBufferSize)
		w.sink = w.buf
	}
	return w, nil
}

// Name returns the final on-disk path, including the compressed suffix.
func (w *Writer) Name() string { return w.path }

// Write appends p verbatim. Short writes and interrupted syscalls are
// retried with the remaining byte count until the whole buffer is consumed;
// any other error is fatal to this call and reports exactly how many bytes
// made it to the stream.
func (w *Writer) Write(p []byte) error {
	if w.closed {
		return &WriterError{Err: ErrClosedWriter, Path: w.path}
	}

	written := 0
	stalled := 0
	for written < len(p) {
		n, err := w.sink.Write(p[written:])
		if n > 0 {
			written += n
			stalled = 0
		}
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, io.ErrShortWrite) {
			if n == 0 {
				stalled++
			}
			if stalled < maxStalledRetries {
				continue
			}
		}
		return &WriterError{
			Err:   ErrAppendFailed,
			Path:  w.path,
			Have:  written,
			Want:  len(p),
			Cause: err,
		}
	}
	return nil
}

// Close finalizes the compression stream (flushing any pending block) and
// then closes the file, in that order. It runs exactly once; later calls
// are no-ops. Close must be called even when the writer is being torn down
// after a failed Write.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	if w.bz != nil {
		if err := w.bz.Close(); err != nil {
			firstErr = err
		}
	} else if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return &WriterError{Err: ErrCloseFailed, Path: w.path, Cause: firstErr}
	}
	return nil
}

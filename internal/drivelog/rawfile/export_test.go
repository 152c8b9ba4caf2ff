package rawfile

import "io"

// Export unexported internals for testing

// NewSinkWriter builds a Writer over an arbitrary sink so tests can inject
// short writes and transient errors without a real file.
func NewSinkWriter(sink io.Writer) *Writer {
	return &Writer{sink: sink, path: "<test-sink>"}
}

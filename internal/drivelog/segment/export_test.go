package segment

import "github.com/julianstephens/drivelog/internal/drivelog/rawfile"

// SwapFullWriter replaces the open segment's full-stream writer and returns
// the previous one, a seam for driving stream failures in tests.
func (l *Logger) SwapFullWriter(w *rawfile.Writer) *rawfile.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.cur.full
	l.cur.full = w
	return old
}

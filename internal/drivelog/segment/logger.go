package segment

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/drivelog/internal/drivelog/rawfile"
	"github.com/julianstephens/drivelog/internal/drivelog/record"
	"github.com/julianstephens/drivelog/internal/logger"
)

// Options configures a segment Logger.
type Options struct {
	// Root is the directory under which segment directories are created.
	Root string

	// Compress routes the full stream through bzip2. The curated stream is
	// always raw; it is small and consumed directly.
	Compress bool

	// RouteName overrides the generated route identifier. Empty means
	// derive a fresh one.
	RouteName string

	// InitData overrides the init block written at the head of every
	// stream. Nil means build one from the current environment.
	InitData []byte

	// Params is folded into the built init block. Ignored when InitData
	// is set.
	Params map[string]string

	Log logger.Logger
}

// openSegment is the live state of one route part: both stream writers plus
// the lock artifact path.
type openSegment struct {
	part     int
	dir      string
	lockPath string
	full     *rawfile.Writer
	curated  *rawfile.Writer
	openedAt time.Time
	bytes    int64

	// writeFailed marks a stream that may hold a partial record. Such a
	// segment is never finalized clean.
	writeFailed bool
}

// Info describes the open segment for rotation-policy decisions.
type Info struct {
	Part     int
	OpenedAt time.Time
	Bytes    int64
}

// Logger owns the segment lifecycle for one route: naming, rotation, the
// lock artifact, and fan-out of each record to the full and curated streams.
// All methods are safe for one writer goroutine; rotation and writes are
// serialized against each other by the internal mutex.
type Logger struct {
	mu sync.Mutex

	opts      Options
	routeName string
	initData  []byte

	part       int // -1 until the first successful Rotate
	cur        *openSegment
	exitSignal int
	closed     bool

	log logger.Logger
}

func wrapErr(op string, sentinel error, route string, part int, cause error) error {
	return &LoggerError{
		Err:   sentinel,
		Route: route,
		Part:  part,
		Op:    op,
		Cause: cause,
	}
}

// New prepares a Logger for the given options. No segment is open until the
// first Rotate call.
func New(opts Options) (*Logger, error) {
	route := opts.RouteName
	if route == "" {
		route = NewRouteName()
	}

	initData := opts.InitData
	if initData == nil {
		var err error
		initData, err = record.BuildInit(record.Snapshot(route, opts.Params))
		if err != nil {
			return nil, wrapErr("build_init", ErrInitWrite, route, -1, err)
		}
	}

	if err := helpers.Ensure(opts.Root, true); err != nil {
		return nil, wrapErr("ensure_root", ErrDirCreate, route, -1, err)
	}

	log := opts.Log
	if log == nil {
		log = logger.NoOpLogger{}
	}

	return &Logger{
		opts:      opts,
		routeName: route,
		initData:  initData,
		part:      -1,
		log:       log,
	}, nil
}

// RouteName returns the route identifier for this recording session.
func (l *Logger) RouteName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.routeName
}

// Part returns the open segment number, or -1 before the first Rotate.
func (l *Logger) Part() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.part
}

// SegmentPath returns the directory of the open segment, or "" before the
// first Rotate.
func (l *Logger) SegmentPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return ""
	}
	return l.cur.dir
}

// Info returns rotation-policy inputs for the open segment.
func (l *Logger) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cur == nil {
		return Info{Part: -1}
	}
	return Info{Part: l.cur.part, OpenedAt: l.cur.openedAt, Bytes: l.cur.bytes}
}

// SetExitSignal records the termination signal for the close path. A
// non-zero signal makes Close leave the lock artifact behind as the
// unclean-shutdown marker.
func (l *Logger) SetExitSignal(sig int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exitSignal = sig
}

// Rotate finalizes the open segment (if any) and opens the next one. The
// new segment is fully built — directory, lock artifact, both streams, init
// block — before the old one is touched, so a failed rotation leaves the
// previous segment open and writable.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return wrapErr("rotate", ErrClosed, l.routeName, l.part, nil)
	}

	next, err := l.openSegmentLocked(l.part + 1)
	if err != nil {
		return err
	}

	if l.cur != nil {
		if cerr := l.finalizeLocked(l.cur, true); cerr != nil {
			// The new segment is live either way; report the old
			// segment's close failure to the caller.
			l.swapLocked(next)
			return cerr
		}
	}
	l.swapLocked(next)

	l.log.Info("segment opened", "route", l.routeName, "part", l.part, "path", next.dir)
	return nil
}

func (l *Logger) swapLocked(next *openSegment) {
	l.cur = next
	l.part = next.part
}

// openSegmentLocked builds segment number part from scratch. On any failure
// the partial segment is torn down and the error reported with a
// rotation-family sentinel.
func (l *Logger) openSegmentLocked(part int) (*openSegment, error) {
	dir := filepath.Join(l.opts.Root, SegmentDirName(l.routeName, part))

	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, wrapErr("rotate", ErrDirCreate, l.routeName, part, err)
	}

	seg := &openSegment{part: part, dir: dir, openedAt: time.Now()}
	fail := func(op string, sentinel error, cause error) (*openSegment, error) {
		l.teardownLocked(seg)
		return nil, wrapErr(op, sentinel, l.routeName, part, cause)
	}

	seg.lockPath = filepath.Join(dir, LockFileName)
	lock, err := os.OpenFile(seg.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec
	if err != nil {
		return fail("rotate", ErrLockWrite, err)
	}
	if err := lock.Close(); err != nil {
		return fail("rotate", ErrLockWrite, err)
	}

	seg.full, err = rawfile.Open(filepath.Join(dir, FullLogName), l.opts.Compress)
	if err != nil {
		return fail("rotate", ErrOpenLog, err)
	}
	seg.curated, err = rawfile.Open(filepath.Join(dir, CuratedLogName), false)
	if err != nil {
		return fail("rotate", ErrOpenLog, err)
	}

	if err := seg.full.Write(l.initData); err != nil {
		return fail("rotate", ErrInitWrite, err)
	}
	if err := seg.curated.Write(l.initData); err != nil {
		return fail("rotate", ErrInitWrite, err)
	}
	seg.bytes = int64(len(l.initData))

	return seg, nil
}

// teardownLocked removes a partially-built segment so it is never exposed
// to writers or to external tooling. Best effort; the segment dir may be
// left if the filesystem is already failing.
func (l *Logger) teardownLocked(seg *openSegment) {
	if seg.curated != nil {
		_ = seg.curated.Close()
	}
	if seg.full != nil {
		_ = seg.full.Close()
		_ = os.Remove(seg.full.Name())
	}
	if seg.curated != nil {
		_ = os.Remove(seg.curated.Name())
	}
	if seg.lockPath != "" {
		_ = os.Remove(seg.lockPath)
	}
	_ = os.Remove(seg.dir)
}

// finalizeLocked closes both streams of seg. When clean is true the lock
// artifact is removed; otherwise it stays behind for recovery tooling. A
// segment that saw a failed write keeps its lock regardless of clean, since
// its streams may end in a partial record.
func (l *Logger) finalizeLocked(seg *openSegment, clean bool) error {
	var firstErr error
	if err := seg.full.Close(); err != nil {
		firstErr = err
	}
	if seg.curated != nil {
		if err := seg.curated.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if clean && !seg.writeFailed && firstErr == nil {
		if err := os.Remove(seg.lockPath); err != nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return wrapErr("close", ErrCloseFailed, l.routeName, seg.part, firstErr)
	}
	return nil
}

// Write appends data to the full stream and, when inCurated is set, to the
// curated stream as well. Calls are serialized; a buffer is persisted
// whole, exactly once, in call order.
func (l *Logger) Write(data []byte, inCurated bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return wrapErr("write", ErrClosed, l.routeName, l.part, nil)
	}
	if l.cur == nil {
		return wrapErr("write", ErrNotOpen, l.routeName, l.part, nil)
	}

	if err := l.cur.full.Write(data); err != nil {
		l.cur.writeFailed = true
		return wrapErr("write", ErrWriteFailed, l.routeName, l.part, err)
	}
	if inCurated && l.cur.curated != nil {
		if err := l.cur.curated.Write(data); err != nil {
			l.cur.writeFailed = true
			return wrapErr("write", ErrWriteFailed, l.routeName, l.part, err)
		}
	}
	l.cur.bytes += int64(len(data))

	return nil
}

// Close finalizes the open segment and marks the logger closed. The lock
// artifact is cleared only when no exit signal was recorded; after a
// signal-driven shutdown it is deliberately left as a forensic marker.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.cur == nil {
		return nil
	}

	clean := l.exitSignal == 0
	err := l.finalizeLocked(l.cur, clean)
	l.cur = nil

	if !clean {
		l.log.Warn("unclean shutdown, lock artifact retained",
			"route", l.routeName, "part", l.part, "signal", l.exitSignal)
	}
	return err
}

package compact

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/dsnet/compress/bzip2"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/drivelog/internal/drivelog/rawfile"
	"github.com/julianstephens/drivelog/internal/drivelog/segment"
	"github.com/julianstephens/drivelog/internal/logger"
)

const (
	tmpSuffix        = ".tmp"
	compressionLevel = 9
	copyChunkSize    = 1 << 20
)

// Options configures a Compactor.
type Options struct {
	// Jobs bounds how many files are compressed concurrently.
	// 0 means one per CPU.
	Jobs int

	// RemoveOriginal deletes the raw full log after its compressed
	// artifact has been renamed into place.
	RemoveOriginal bool

	Log logger.Logger
}

// Stats summarizes one compaction sweep.
type Stats struct {
	Scanned      int64 // full logs considered
	Compressed   int64 // artifacts produced
	SkippedOpen  int64 // segments skipped because the lock artifact was present
	StaleRemoved int64 // stale or partial artifacts deleted before retry
}

// Compactor sweeps a directory tree and bzip2-compresses every completed
// full log. It shares no state with a live logger; the lock artifact on
// disk is the only coordination channel, so segments may appear, disappear,
// or go mid-write between the scan and the action.
type Compactor struct {
	opts Options
	log  logger.Logger

	scanned      atomic.Int64
	compressed   atomic.Int64
	skippedOpen  atomic.Int64
	staleRemoved atomic.Int64
}

func New(opts Options) *Compactor {
	log := opts.Log
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Compactor{opts: opts, log: log}
}

// Run walks root, finds every completed full log, and compresses the ones
// still pending. Distinct files are compressed in parallel. Cancellation of
// ctx aborts the sweep gracefully with ErrInterrupted; an interrupted
// attempt never corrupts the still-present original.
func (c *Compactor) Run(ctx context.Context, root string) (Stats, error) {
	candidates, err := c.scan(ctx, root)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c.stats(), &CompactError{Err: ErrInterrupted, Path: root, Cause: err}
		}
		return c.stats(), &CompactError{Err: ErrScanFailed, Path: root, Cause: err}
	}

	jobs := c.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, path := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return c.compressOne(gctx, path)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return c.stats(), &CompactError{Err: ErrInterrupted, Path: root, Cause: err}
		}
		return c.stats(), err
	}
	return c.stats(), nil
}

func (c *Compactor) stats() Stats {
	return Stats{
		Scanned:      c.scanned.Load(),
		Compressed:   c.compressed.Load(),
		SkippedOpen:  c.skippedOpen.Load(),
		StaleRemoved: c.staleRemoved.Load(),
	}
}

// scan collects the full logs eligible for compression: named per the
// convention, with the segment's lock artifact already absent. Open
// segments belong to their logger and are skipped entirely.
func (c *Compactor) scan(ctx context.Context, root string) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || d.Name() != segment.FullLogName {
			return nil
		}
		c.scanned.Add(1)

		dir := filepath.Dir(path)
		if _, err := os.Stat(filepath.Join(dir, segment.LockFileName)); err == nil {
			c.skippedOpen.Add(1)
			c.log.Debug("segment still open, skipping", "path", dir)
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}

		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// compressOne produces <path>.bz2 for one full log. Any stale artifact or
// leftover temp file is removed first so a partial earlier attempt never
// masks the retry. The artifact is built under a temp name and renamed into
// place once complete.
func (c *Compactor) compressOne(ctx context.Context, path string) error {
	dst := path + rawfile.CompressedSuffix
	tmp := dst + tmpSuffix

	for _, stale := range []string{dst, tmp} {
		err := os.Remove(stale)
		if err == nil {
			c.staleRemoved.Add(1)
			c.log.Debug("removed stale artifact", "path", stale)
		} else if !os.IsNotExist(err) {
			return &CompactError{Err: ErrStaleRemove, Path: stale, Cause: err}
		}
	}

	if err := c.compressTo(ctx, path, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return &CompactError{Err: ErrCompressFailed, Path: path, Cause: err}
	}
	c.compressed.Add(1)
	c.log.Info("compressed full log", "path", path)

	if c.opts.RemoveOriginal {
		if err := os.Remove(path); err != nil {
			return &CompactError{Err: ErrCompressFailed, Path: path, Cause: err}
		}
	}
	return nil
}

func (c *Compactor) compressTo(ctx context.Context, src, tmp string) error {
	in, err := os.Open(src) //nolint:gosec
	if err != nil {
		return &CompactError{Err: ErrCompressFailed, Path: src, Cause: err}
	}
	defer in.Close() //nolint:errcheck

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return &CompactError{Err: ErrCompressFailed, Path: tmp, Cause: err}
	}

	bz, err := bzip2.NewWriter(out, &bzip2.WriterConfig{Level: compressionLevel})
	if err != nil {
		_ = out.Close()
		return &CompactError{Err: ErrCompressFailed, Path: tmp, Cause: err}
	}

	buf := make([]byte, copyChunkSize)
	copyErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, rerr := in.Read(buf)
			if n > 0 {
				if _, werr := bz.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if rerr == io.EOF {
				return nil
			}
			if rerr != nil {
				return rerr
			}
		}
	}()

	if err := bz.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = err
	}

	if copyErr != nil {
		if errors.Is(copyErr, context.Canceled) {
			return copyErr
		}
		return &CompactError{Err: ErrCompressFailed, Path: src, Cause: copyErr}
	}
	return nil
}

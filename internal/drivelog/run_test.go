package drivelog_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/drivelog/internal/drivelog"
	"github.com/julianstephens/drivelog/internal/drivelog/segment"
	"github.com/julianstephens/drivelog/internal/testutil"
)

var initBlock = []byte("init-block-16byt")

func newLogger(t *testing.T, root string) *segment.Logger {
	t.Helper()
	lg, err := segment.New(segment.Options{Root: root, Compress: true, InitData: initBlock})
	tst.RequireNoError(t, err)
	return lg
}

func frame(data []byte, curated bool) []byte {
	n := uint32(len(data)) //nolint:gosec
	if curated {
		n |= 1 << 31
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], n)
	return append(hdr[:], data...)
}

// TestRunnerDrainsSource tests the pump loop end to end: every record lands
// in the full stream, curated ones in both
func TestRunnerDrainsSource(t *testing.T) {
	root := t.TempDir()
	lg := newLogger(t, root)

	src := testutil.NewScriptedSource(
		drivelog.Record{Data: []byte("steer"), InCurated: true},
		drivelog.Record{Data: []byte("camera-frame"), InCurated: false},
		drivelog.Record{Data: []byte("gps"), InCurated: true},
	)

	runner := &drivelog.Runner{Logger: lg, Policy: drivelog.RotateAfterBytes(1 << 20)}
	tst.RequireNoError(t, runner.Run(context.Background(), src))
	tst.RequireNoError(t, lg.Close())
	tst.AssertEqual(t, src.Delivered(), 3, "expected whole source consumed")

	dir := filepath.Join(root, segment.SegmentDirName(lg.RouteName(), 0))
	full := testutil.ReadBzip2(t, filepath.Join(dir, segment.FullLogName+".bz2"))
	wantFull := bytes.Join([][]byte{initBlock, []byte("steer"), []byte("camera-frame"), []byte("gps")}, nil)
	tst.RequireDeepEqual(t, full, wantFull)

	curated, err := os.ReadFile(filepath.Join(dir, segment.CuratedLogName)) //nolint:gosec
	tst.RequireNoError(t, err)
	wantCurated := bytes.Join([][]byte{initBlock, []byte("steer"), []byte("gps")}, nil)
	tst.RequireDeepEqual(t, curated, wantCurated)

	// clean drain clears the lock
	tst.AssertFalse(t, testutil.FileExists(t, filepath.Join(dir, segment.LockFileName)), "expected lock cleared")
}

// TestRunnerRotatesByBytes tests the byte-count rotation policy
func TestRunnerRotatesByBytes(t *testing.T) {
	root := t.TempDir()
	lg := newLogger(t, root)

	var records []drivelog.Record
	for i := 0; i < 6; i++ {
		records = append(records, drivelog.Record{Data: bytes.Repeat([]byte{byte(i)}, 100)})
	}
	src := testutil.NewScriptedSource(records...)

	// init (16) + two records (200) crosses 200 bytes, so segments hold
	// two records each
	runner := &drivelog.Runner{Logger: lg, Policy: drivelog.RotateAfterBytes(200)}
	tst.RequireNoError(t, runner.Run(context.Background(), src))
	tst.RequireNoError(t, lg.Close())

	tst.AssertEqual(t, lg.Part(), 2, "expected three segments for six records")
	for part := 0; part <= 2; part++ {
		dir := filepath.Join(root, segment.SegmentDirName(lg.RouteName(), part))
		full := testutil.ReadBzip2(t, filepath.Join(dir, segment.FullLogName+".bz2"))
		tst.AssertEqual(t, len(full), len(initBlock)+200, "each segment holds init plus two records")
	}
}

// TestRotateEveryPolicy tests the elapsed-time trigger in isolation
func TestRotateEveryPolicy(t *testing.T) {
	policy := drivelog.RotateEvery(time.Hour)
	tst.AssertFalse(t, policy(segment.Info{OpenedAt: time.Now()}), "fresh segment must not rotate")
	tst.AssertTrue(t, policy(segment.Info{OpenedAt: time.Now().Add(-2 * time.Hour)}), "stale segment must rotate")
}

// TestRunnerSourceFailure tests that a producer error surfaces distinctly
func TestRunnerSourceFailure(t *testing.T) {
	lg := newLogger(t, t.TempDir())
	defer lg.Close() //nolint:errcheck

	src := testutil.NewScriptedSource(
		drivelog.Record{Data: []byte("ok")},
		drivelog.Record{Data: []byte("never delivered")},
	)
	src.SetFailAt(1)

	runner := &drivelog.Runner{Logger: lg}
	err := runner.Run(context.Background(), src)
	tst.AssertTrue(t, errors.Is(err, drivelog.ErrSourceFailed), "expected source-failure sentinel")
}

// TestRunnerCancellation tests that cancellation is reported as ctx.Err so
// the caller can decide the lock-artifact policy
func TestRunnerCancellation(t *testing.T) {
	root := t.TempDir()
	lg := newLogger(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &drivelog.Runner{Logger: lg}
	err := runner.Run(ctx, testutil.NewScriptedSource(drivelog.Record{Data: []byte("x")}))
	tst.AssertTrue(t, errors.Is(err, context.Canceled), "expected ctx error")

	// the host records the signal before closing, so the lock stays as
	// the unclean-shutdown marker
	lg.SetExitSignal(2)
	tst.RequireNoError(t, lg.Close())
	dir := filepath.Join(root, segment.SegmentDirName(lg.RouteName(), 0))
	tst.AssertTrue(t, testutil.FileExists(t, filepath.Join(dir, segment.LockFileName)), "expected lock retained")
}

// TestFrameSourceParsing tests the stdin framing: length prefix with the
// curated flag in the high bit
func TestFrameSourceParsing(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(frame([]byte("curated-rec"), true))
	stream.Write(frame([]byte("full-only"), false))
	stream.Write(frame(nil, false))

	src := drivelog.NewFrameSource(&stream)
	ctx := context.Background()

	rec, err := src.Next(ctx)
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, string(rec.Data), "curated-rec")
	tst.AssertTrue(t, rec.InCurated, "expected curated flag")

	rec, err = src.Next(ctx)
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, string(rec.Data), "full-only")
	tst.AssertFalse(t, rec.InCurated, "expected full-only record")

	rec, err = src.Next(ctx)
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, len(rec.Data), 0, "empty record is valid")

	_, err = src.Next(ctx)
	tst.AssertTrue(t, errors.Is(err, io.EOF), "expected EOF at stream end")
}

// TestFrameSourceCancellation tests that a canceled context unblocks Next
// even when the stream never delivers another byte
func TestFrameSourceCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close() //nolint:errcheck
	src := drivelog.NewFrameSource(pr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.Next(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		tst.AssertTrue(t, errors.Is(err, context.Canceled), "expected ctx error")
	case <-time.After(2 * time.Second):
		t.Fatal("Next still blocked after context cancellation")
	}
}

// TestFrameSourceTruncated tests a frame cut off mid-payload
func TestFrameSourceTruncated(t *testing.T) {
	full := frame([]byte("cut me short"), false)
	src := drivelog.NewFrameSource(bytes.NewReader(full[:len(full)-3]))

	_, err := src.Next(context.Background())
	tst.AssertTrue(t, errors.Is(err, drivelog.ErrFrameShort), "expected truncated-frame sentinel")
}

// TestFrameSourceOversized tests the frame size bound
func TestFrameSourceOversized(t *testing.T) {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(drivelog.MaxFrameSize+1))
	src := drivelog.NewFrameSource(bytes.NewReader(hdr[:]))

	_, err := src.Next(context.Background())
	tst.AssertTrue(t, errors.Is(err, drivelog.ErrFrameTooBig), "expected size-limit sentinel")
}

package drivelog

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/julianstephens/drivelog/internal/drivelog/segment"
	"github.com/julianstephens/drivelog/internal/logger"
)

// RotatePolicy decides, before each record is written, whether the open
// segment should be superseded. The policy only triggers rotation; the
// mechanics stay with the segment logger.
type RotatePolicy func(info segment.Info) bool

// RotateEvery rotates once a segment has been open for d.
func RotateEvery(d time.Duration) RotatePolicy {
	return func(info segment.Info) bool {
		return time.Since(info.OpenedAt) >= d
	}
}

// RotateAfterBytes rotates once a segment's full stream has accepted n
// bytes (counted before compression).
func RotateAfterBytes(n int64) RotatePolicy {
	return func(info segment.Info) bool {
		return info.Bytes >= n
	}
}

// Runner pumps a Source into a segment Logger, rotating per the configured
// policy. It owns the delivery loop only; the caller opens and closes the
// logger so it can record the exit signal first.
type Runner struct {
	Logger *segment.Logger
	Policy RotatePolicy
	Log    logger.Logger
}

// Run opens the first segment and persists records until the source is
// exhausted or ctx is cancelled. Context cancellation is a normal stop and
// returns ctx.Err(); the caller decides whether the shutdown counts as
// clean before closing the logger.
func (r *Runner) Run(ctx context.Context, src Source) error {
	policy := r.Policy
	if policy == nil {
		policy = RotateEvery(DefaultSegmentLength)
	}
	log := r.Log
	if log == nil {
		log = logger.NoOpLogger{}
	}

	if err := r.Logger.Rotate(); err != nil {
		return err
	}

	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("source drained", "route", r.Logger.RouteName(), "part", r.Logger.Part())
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return &RunError{Err: ErrSourceFailed, Op: "next", Cause: err}
		}

		if policy(r.Logger.Info()) {
			if err := r.Logger.Rotate(); err != nil {
				// A failed rotation leaves the previous segment
				// writable; surface the error and keep state.
				return err
			}
		}

		if err := r.Logger.Write(rec.Data, rec.InCurated); err != nil {
			return err
		}
	}
}

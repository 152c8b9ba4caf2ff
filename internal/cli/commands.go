package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/go-utils/cliutil"

	"github.com/julianstephens/drivelog/internal/drivelog"
	"github.com/julianstephens/drivelog/internal/drivelog/compact"
	"github.com/julianstephens/drivelog/internal/drivelog/segment"
	"github.com/julianstephens/drivelog/internal/logger"
)

// RecordCmd runs the recorder against a framed stdin producer. The real
// message bus stays outside this binary; anything that can emit
// length-prefixed frames can feed it.
type RecordCmd struct {
	Root          string        `help:"Directory for segment directories"        default:"realdata" env:"DRIVELOG_ROOT"`
	NoCompress    bool          `help:"Disable bzip2 compression of the full log"                   env:"DRIVELOG_NO_COMPRESS"`
	SegmentLength time.Duration `help:"Rotate segments after this duration"      default:"60s"      env:"DRIVELOG_SEGMENT_LENGTH"`

	Logger logger.Logger `kong:"-"`
}

func (c *RecordCmd) Run() error {
	lg, err := segment.New(segment.Options{
		Root:     c.Root,
		Compress: !c.NoCompress,
		Log:      c.Logger,
	})
	if err != nil {
		return err
	}

	// A termination signal is recorded before the logger closes so the
	// lock artifact stays behind as the unclean-shutdown marker.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		// Notification stops after the first signal so a second one
		// terminates the process the default way.
		signal.Stop(sigCh)
		if s, ok := sig.(syscall.Signal); ok {
			lg.SetExitSignal(int(s))
		}
		cancel()
	}()

	runner := &drivelog.Runner{
		Logger: lg,
		Policy: drivelog.RotateEvery(c.SegmentLength),
		Log:    c.Logger,
	}
	runErr := runner.Run(ctx, drivelog.NewFrameSource(os.Stdin))
	closeErr := lg.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	if errors.Is(runErr, context.Canceled) {
		cliutil.PrintError(fmt.Sprintf("recording interrupted, route %s left at segment %d", lg.RouteName(), lg.Part()))
		return runErr
	}
	return nil
}

// CompactCmd batch-compresses completed full logs under a directory tree.
type CompactCmd struct {
	Directory string `arg:""   help:"Root directory to scan for full logs"`
	Jobs      int    `help:"Parallel compression jobs (default: one per CPU)" env:"DRIVELOG_COMPACT_JOBS"`
	Remove    bool   `help:"Remove the original full log after compression"`

	Logger logger.Logger `kong:"-"`
}

func (c *CompactCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	compactor := compact.New(compact.Options{
		Jobs:           c.Jobs,
		RemoveOriginal: c.Remove,
		Log:            c.Logger,
	})

	stats, err := compactor.Run(ctx, c.Directory)
	if err != nil {
		if errors.Is(err, compact.ErrInterrupted) {
			cliutil.PrintError(fmt.Sprintf(
				"compaction interrupted: %d of %d full logs compressed", stats.Compressed, stats.Scanned))
		}
		return err
	}

	c.Logger.Info("compaction complete",
		"scanned", stats.Scanned,
		"compressed", stats.Compressed,
		"skipped_open", stats.SkippedOpen,
		"stale_removed", stats.StaleRemoved,
	)
	return nil
}

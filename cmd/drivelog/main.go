package main

import (
	"os"
	"path"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/drivelog/internal/cli"
	"github.com/julianstephens/drivelog/internal/drivelog"
	"github.com/julianstephens/drivelog/internal/logger"
)

var (
	version = "drivelog v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error)" default:"info" envvar:"DRIVELOG_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                envvar:"DRIVELOG_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr in addition to file"                envvar:"DRIVELOG_LOG_STREAM"`
}

type CLI struct {
	Record  cli.RecordCmd  `cmd:"" help:"Record a telemetry stream into rotated segments"`
	Compact cli.CompactCmd `cmd:"" help:"Batch-compress completed full logs under a directory"`

	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `                       help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts) (logger.Logger, error) {
	var level string
	if opts.Debug {
		level = "debug"
	} else {
		level = opts.Level
	}

	consoleLogger := logger.NewConsoleLogger(level)

	if opts.Stream {
		return consoleLogger, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := path.Join(homeDir, drivelog.DefaultAppDir, drivelog.DefaultLogDir)
	fileLogger, err := logger.NewFileLogger(
		logDir,
		drivelog.DefaultLogFileName,
		drivelog.DefaultLogMaxSize,
		drivelog.DefaultLogMaxBackups,
	)
	if err != nil {
		return nil, err
	}

	multiLogger := logger.NewMultiLogger(fileLogger, consoleLogger)
	return multiLogger, nil
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("drivelog"),
		kong.Description("Telemetry recording layer: rotated segments with full and curated logs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	lg, err := createLogger(cliApp.LogOpts)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}
	cliApp.Record.Logger = lg
	cliApp.Compact.Logger = lg

	defer func() {
		if c, ok := lg.(logger.Closeable); ok {
			_ = c.Close()
		}
	}()

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

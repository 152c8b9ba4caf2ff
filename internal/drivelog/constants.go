package drivelog

import "time"

const (
	// DefaultSegmentLength is the rotation interval used when the caller
	// supplies no policy.
	DefaultSegmentLength = 60 * time.Second

	// DefaultLogRoot is where segment directories land unless overridden.
	DefaultLogRoot = "realdata"
)

// Process log file defaults
const (
	DefaultAppDir        = ".drivelog"
	DefaultLogDir        = "logs"
	DefaultLogFileName   = "drivelog.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)

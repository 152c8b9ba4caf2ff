package segment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// FullLogName is the basename of the full-fidelity stream
	// (CompressedSuffix is appended when the stream is compressed).
	FullLogName = "rlog"

	// CuratedLogName is the basename of the curated stream, always raw.
	CuratedLogName = "qlog"

	// LockFileName marks a segment as actively owned by a live logger.
	// Its presence after the owning process has exited is the signal that
	// the segment may be truncated.
	LockFileName = "rlog.lock"

	routeSeparator = "--"
	partWidth      = 4
)

// NewRouteName derives a fresh route identifier from a session token.
func NewRouteName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SegmentDirName builds the directory name for a route part:
// "<route>--<zero-padded part>".
func SegmentDirName(route string, part int) string {
	return fmt.Sprintf("%s%s%0*d", route, routeSeparator, partWidth, part)
}

// ParseSegmentDir splits a segment directory name back into its route
// identifier and part number. ok is false for names that do not follow the
// SegmentDirName convention.
func ParseSegmentDir(name string) (route string, part int, ok bool) {
	i := strings.LastIndex(name, routeSeparator)
	if i <= 0 || i+len(routeSeparator) >= len(name) {
		return "", 0, false
	}
	route = name[:i]
	part, err := strconv.Atoi(name[i+len(routeSeparator):])
	if err != nil || part < 0 {
		return "", 0, false
	}
	return route, part, true
}

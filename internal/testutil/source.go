package testutil

import (
	"context"
	"fmt"
	"io"

	"github.com/julianstephens/drivelog/internal/drivelog"
)

// ScriptedSource is a test Source that replays a fixed record sequence and
// can be told to fail at a given index.
type ScriptedSource struct {
	records     []drivelog.Record
	next        int
	failAtIndex int // -1 means no failure
}

// NewScriptedSource creates a source over the given records. After the last
// record it returns io.EOF.
func NewScriptedSource(records ...drivelog.Record) *ScriptedSource {
	return &ScriptedSource{records: records, failAtIndex: -1}
}

// SetFailAt makes Next fail when asked for the record at index.
func (s *ScriptedSource) SetFailAt(index int) {
	s.failAtIndex = index
}

// Delivered reports how many records have been handed out.
func (s *ScriptedSource) Delivered() int {
	return s.next
}

func (s *ScriptedSource) Next(ctx context.Context) (drivelog.Record, error) {
	if err := ctx.Err(); err != nil {
		return drivelog.Record{}, err
	}
	if s.failAtIndex >= 0 && s.next == s.failAtIndex {
		return drivelog.Record{}, fmt.Errorf("scripted failure at index %d", s.next)
	}
	if s.next >= len(s.records) {
		return drivelog.Record{}, io.EOF
	}
	rec := s.records[s.next]
	s.next++
	return rec, nil
}

package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SegmentLog appends records to one CSV file per day under dir.
//
// Each Emit opens, appends and closes the file so a removed or remounted
// medium is picked up again on the next record.
type SegmentLog struct {
	dir    string
	prefix string
	name   string
	day    time.Time
}

// NewSegmentLog creates a SegmentLog writing <prefix>_YYYY-MM-DD.csv files.
func NewSegmentLog(dir, prefix string) *SegmentLog {
	return &SegmentLog{dir: dir, prefix: prefix}
}

// Start writes the reboot marker into the segment for now.
func (s *SegmentLog) Start(now time.Time) error {
	return s.appendLine(now, "Rebooted at "+FormatTimestamp(now))
}

// Emit appends r to its day's segment.
func (s *SegmentLog) Emit(r Record) error {
	return s.appendLine(r.Timestamp, FormatLine(r))
}

// EmitError appends a human-readable error line to the day's segment.
func (s *SegmentLog) EmitError(r ErrorRecord) error {
	return s.appendLine(r.Timestamp, FormatErrorLine(r))
}

// Segment returns the file currently written to (empty before the first write).
func (s *SegmentLog) Segment() string {
	return s.name
}

func (s *SegmentLog) rotate(t time.Time) {
	y, m, d := t.Date()
	if s.name != "" {
		if cy, cm, cd := s.day.Date(); cy == y && cm == m && cd == d {
			return
		}
	}
	s.day = t
	s.name = filepath.Join(s.dir, SegmentName(s.prefix, t))
}

func (s *SegmentLog) appendLine(t time.Time, line string) error {
	s.rotate(t)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrUnavailable, s.dir, err)
	}
	f, err := os.OpenFile(s.name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, s.name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrUnavailable, s.name, err)
	}
	out := line + "\n"
	if info.Size() == 0 {
		out = Header + "\n" + out
	}
	if _, err := f.WriteString(out); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, s.name, err)
	}
	return nil
}

package telemetry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatLine(t *testing.T) {
	r := Record{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 10, 0, time.UTC),
		VoltageMV: 12034,
		CurrentMA: 215,
		Position:  1795,
	}
	want := "2026-02-02T22:18:10Z,12034,215,1795"
	if got := FormatLine(r); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatLineNegativeAndZeroPadding(t *testing.T) {
	r := Record{
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC),
		VoltageMV: 0,
		CurrentMA: -12,
		Position:  1205,
	}
	want := "2026-03-04T05:06:07Z,0,-12,1205"
	if got := FormatLine(r); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatTimestampKeepsClockFields(t *testing.T) {
	// The RTC's fields are rendered as-is; no zone conversion.
	loc := time.FixedZone("field", 3*3600)
	ts := time.Date(2026, 6, 1, 8, 0, 0, 0, loc)
	if got := FormatTimestamp(ts); got != "2026-06-01T08:00:00Z" {
		t.Errorf("got %q", got)
	}
}

func TestFormatErrorLine(t *testing.T) {
	r := ErrorRecord{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 10, 0, time.UTC),
		Kind:      KindActuatorWrite,
		Err:       errors.New("i2c nack"),
	}
	want := "Error at 2026-02-02T22:18:10Z: actuator_write: i2c nack"
	if got := FormatErrorLine(r); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSegmentName(t *testing.T) {
	got := SegmentName("valve_log", time.Date(2026, 10, 8, 23, 59, 59, 0, time.UTC))
	if got != "valve_log_2026-10-08.csv" {
		t.Errorf("got %q", got)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestSegmentLogHeaderAndReboot(t *testing.T) {
	dir := t.TempDir()
	s := NewSegmentLog(dir, "valve_log")
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Start(day); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Emit(Record{Timestamp: day.Add(10 * time.Second), VoltageMV: 12000, CurrentMA: 100, Position: 1205}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "valve_log_2026-01-01.csv"))
	want := []string{
		Header,
		"Rebooted at 2026-01-01T12:00:00Z",
		"2026-01-01T12:00:10Z,12000,100,1205",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSegmentLogHeaderOncePerSegmentAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	NewSegmentLog(dir, "v").Start(day)
	NewSegmentLog(dir, "v").Start(day.Add(time.Hour))

	lines := readLines(t, filepath.Join(dir, "v_2026-01-01.csv"))
	headers := 0
	for _, l := range lines {
		if l == Header {
			headers++
		}
	}
	if headers != 1 {
		t.Errorf("expected 1 header, got %d in %q", headers, lines)
	}
}

func TestSegmentLogRotatesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	s := NewSegmentLog(dir, "v")
	before := time.Date(2026, 1, 1, 23, 59, 50, 0, time.UTC)
	after := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	s.Emit(Record{Timestamp: before, VoltageMV: 1, Position: 1205})
	first := s.Segment()
	s.Emit(Record{Timestamp: after, VoltageMV: 2, Position: 1795})

	if s.Segment() == first {
		t.Fatal("expected a new segment after midnight")
	}
	if filepath.Base(s.Segment()) != "v_2026-01-02.csv" {
		t.Errorf("segment: got %q", s.Segment())
	}

	day2 := readLines(t, s.Segment())
	if len(day2) != 2 || day2[0] != Header || day2[1] != "2026-01-02T00:00:00Z,2,0,1795" {
		t.Errorf("day 2 segment: %q", day2)
	}
	day1 := readLines(t, first)
	if len(day1) != 2 || day1[0] != Header {
		t.Errorf("day 1 segment: %q", day1)
	}
}

func TestSegmentLogUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "card")
	os.WriteFile(blocker, nil, 0o644)

	s := NewSegmentLog(filepath.Join(blocker, "logs"), "v")
	err := s.Emit(Record{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSegmentLogErrorLine(t *testing.T) {
	dir := t.TempDir()
	s := NewSegmentLog(dir, "v")
	ts := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)

	s.EmitError(ErrorRecord{Timestamp: ts, Kind: KindSensorRead, Err: errors.New("no ack")})

	lines := readLines(t, filepath.Join(dir, "v_2026-01-01.csv"))
	if lines[len(lines)-1] != "Error at 2026-01-01T00:00:01Z: sensor_read: no ack" {
		t.Errorf("got %q", lines)
	}
}

func TestSerialEcho(t *testing.T) {
	var buf bytes.Buffer
	s := NewSerialEcho(&buf)
	ts := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)

	s.Emit(Record{Timestamp: ts, VoltageMV: 12000, CurrentMA: 50, Position: 1500})
	s.EmitError(ErrorRecord{Timestamp: ts, Kind: KindStorage, Err: errors.New("card removed")})

	want := "V:2026-01-01T00:00:10Z,12000,50,1500\n" +
		"E:Error at 2026-01-01T00:00:10Z: storage: card removed\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("port closed") }

func TestSerialEchoUnavailable(t *testing.T) {
	err := NewSerialEcho(failWriter{}).Emit(Record{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestFanoutDeliversToAllDespiteFailure(t *testing.T) {
	good1, bad, good2 := NewFakeSink(), NewFakeSink(), NewFakeSink()
	bad.EmitErr = ErrUnavailable
	f := Fanout{good1, bad, good2}

	err := f.Emit(Record{VoltageMV: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected joined ErrUnavailable, got %v", err)
	}
	if len(good1.Records) != 1 || len(good2.Records) != 1 {
		t.Errorf("healthy sinks: got %d/%d records", len(good1.Records), len(good2.Records))
	}

	f.EmitError(ErrorRecord{Kind: KindClock})
	if len(good2.Errors) != 1 {
		t.Errorf("expected error record on healthy sink, got %d", len(good2.Errors))
	}
}

func TestFanoutEmpty(t *testing.T) {
	if err := (Fanout{}).Emit(Record{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeSinkErrorsOfKind(t *testing.T) {
	f := NewFakeSink()
	f.EmitError(ErrorRecord{Kind: KindSensorRead})
	f.EmitError(ErrorRecord{Kind: KindStorage})
	f.EmitError(ErrorRecord{Kind: KindSensorRead})

	if got := len(f.ErrorsOfKind(KindSensorRead)); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

package logic

import "time"

// LogDue reports whether a telemetry record is due at now.
//
// Records land on wall-clock second boundaries that are a multiple of
// intervalSeconds into the day, and at most once per second: now must be a
// later second than lastLogAt. Loop jitter therefore never shifts the
// record timestamps.
func LogDue(now, lastLogAt time.Time, intervalSeconds uint32) bool {
	if intervalSeconds == 0 {
		return false
	}
	sec := now.Truncate(time.Second)
	if !sec.After(lastLogAt.Truncate(time.Second)) {
		return false
	}
	ofDay := uint32(sec.Hour()*3600 + sec.Minute()*60 + sec.Second())
	return ofDay%intervalSeconds == 0
}

// Package clock provides the wall-clock and monotonic time sources used by
// the supervisor. The fake implementation allows deterministic tests.
package clock

import (
	"errors"
	"time"
)

// ErrUnset is returned by NowWall when the wall clock has not been set
// (no RTC, no NTP sync yet).
var ErrUnset = errors.New("wall clock not set")

// MinValidYear is the earliest year a synchronised wall clock can report.
// Boards without a battery-backed RTC boot at the epoch.
const MinValidYear = 2020

// Clock supplies time to the control loop.
type Clock interface {
	// NowMonotonicMs returns a millisecond counter that never goes backwards
	// except on wrap. It is unaffected by wall-clock corrections.
	NowMonotonicMs() uint64

	// NowWall returns the current wall-clock time in UTC.
	// Returns ErrUnset if the clock is not trustworthy.
	NowWall() (time.Time, error)
}

// System reads the host clock.
type System struct {
	start time.Time
}

// NewSystem creates a System clock whose monotonic counter starts at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// NowMonotonicMs returns milliseconds since NewSystem, using Go's
// monotonic clock reading.
func (s *System) NowMonotonicMs() uint64 {
	return uint64(time.Since(s.start).Milliseconds())
}

// NowWall returns time.Now in UTC, or ErrUnset if the year is implausible.
func (s *System) NowWall() (time.Time, error) {
	now := time.Now().UTC()
	if now.Year() < MinValidYear {
		return time.Time{}, ErrUnset
	}
	return now, nil
}

// Package logic contains the pure decision rules for the valve supervisor.
// This package has NO external dependencies (no I2C, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time or monotonic millisecond parameters.
package logic

import "fmt"

// Position is a symbolic valve position.
type Position int

const (
	// Unknown is returned when a set-point does not match any position,
	// e.g. while the servo is in transit.
	Unknown Position = iota
	Bottom
	Top
	// Home is the neutral safety position. It is never a scheduled target.
	Home
)

func (p Position) String() string {
	switch p {
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case Home:
		return "home"
	default:
		return "unknown"
	}
}

// ParsePosition is the inverse of Position.String for the three real positions.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "bottom":
		return Bottom, nil
	case "top":
		return Top, nil
	case "home":
		return Home, nil
	}
	return Unknown, fmt.Errorf("unknown position %q", s)
}

// SetPoints maps each position to the actuator's native set-point
// (servo pulse width in microseconds).
type SetPoints struct {
	Bottom int
	Top    int
	Home   int
}

// DefaultSetPoints are the calibrated pulse widths of the field valve.
var DefaultSetPoints = SetPoints{Bottom: 1205, Top: 1795, Home: 1500}

// For returns the set-point for p. Unknown maps to Home.
func (s SetPoints) For(p Position) int {
	switch p {
	case Bottom:
		return s.Bottom
	case Top:
		return s.Top
	default:
		return s.Home
	}
}

// Classify maps an actuator read-back value to a position.
// Returns (Unknown, false) for values that match no set-point.
func (s SetPoints) Classify(value int) (Position, bool) {
	switch value {
	case s.Bottom:
		return Bottom, true
	case s.Top:
		return Top, true
	case s.Home:
		return Home, true
	}
	return Unknown, false
}

// Validate checks that the mapping is injective.
func (s SetPoints) Validate() error {
	if s.Bottom == s.Top || s.Bottom == s.Home || s.Top == s.Home {
		return fmt.Errorf("set-points must be distinct: bottom=%d top=%d home=%d", s.Bottom, s.Top, s.Home)
	}
	return nil
}

// Mode selects where the requested position comes from.
type Mode string

const (
	ModeScheduled Mode = "scheduled"
	ModeCommanded Mode = "commanded"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeScheduled, ModeCommanded:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown control mode %q (want %q or %q)", s, ModeScheduled, ModeCommanded)
}

// Counts are running totals since boot, reported in heartbeat events.
type Counts struct {
	Moves            int // successful actuations
	Suppressed       int // moves held back by the rate limiter
	InterlockTrips   int // healthy-to-undervoltage transitions
	Errors           int // error records raised
	TelemetryDropped int // records at least one sink failed to take
}

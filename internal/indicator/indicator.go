// Package indicator drives the two status LEDs that encode valve state.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package indicator

import (
	"errors"
	"fmt"

	"github.com/sweeney/valve-supervisor/internal/logic"
)

// Line is a single two-state output.
type Line interface {
	// Set drives the output on or off.
	Set(on bool) error

	// Close releases the output.
	Close() error
}

// Default BCM pin numbers for indicators A and B.
const (
	DefaultPinA = 17
	DefaultPinB = 27
)

// Pattern is a repeating on/off cycle in milliseconds. PhaseMs shifts the
// cycle so two indicators can alternate.
type Pattern struct {
	OnMs    uint32
	OffMs   uint32
	PhaseMs uint32
}

// Level returns whether the pattern is lit at monotonic time nowMs.
func (p Pattern) Level(nowMs uint64) bool {
	if p.OnMs == 0 {
		return false
	}
	if p.OffMs == 0 {
		return true
	}
	period := uint64(p.OnMs) + uint64(p.OffMs)
	return (nowMs+uint64(p.PhaseMs))%period < uint64(p.OnMs)
}

var (
	mostlyOn  = Pattern{OnMs: 900, OffMs: 100}
	mostlyOff = Pattern{OnMs: 100, OffMs: 900}
)

// Patterns returns the (A, B) patterns for a valve position.
// Home, and an unknown position, alternate both indicators slowly so the
// anomaly is distinguishable from either resting state.
func Patterns(pos logic.Position) (Pattern, Pattern) {
	switch pos {
	case logic.Bottom:
		return mostlyOn, mostlyOff
	case logic.Top:
		return mostlyOff, mostlyOn
	default:
		return Pattern{OnMs: 500, OffMs: 500}, Pattern{OnMs: 500, OffMs: 500, PhaseMs: 500}
	}
}

// HeartbeatPattern blinks briefly once a second while the control loop runs.
var HeartbeatPattern = Pattern{OnMs: 100, OffMs: 900}

// Flasher drives one Line through a Pattern. The output is only written
// when its level changes, so Refresh is cheap to call every tick.
type Flasher struct {
	line    Line
	pattern Pattern
	level   bool
	written bool
}

// NewFlasher creates a Flasher for line running p.
func NewFlasher(line Line, p Pattern) *Flasher {
	return &Flasher{line: line, pattern: p}
}

// SetPattern replaces the pattern. Takes effect on the next Refresh.
func (f *Flasher) SetPattern(p Pattern) {
	f.pattern = p
}

// Refresh updates the output for monotonic time nowMs. A failed write is
// retried on the next Refresh.
func (f *Flasher) Refresh(nowMs uint64) error {
	next := f.pattern.Level(nowMs)
	if f.written && next == f.level {
		return nil
	}
	if err := f.line.Set(next); err != nil {
		f.written = false
		return err
	}
	f.level, f.written = next, true
	return nil
}

// Close turns the output off and releases it.
func (f *Flasher) Close() error {
	var errs []error
	if err := f.line.Set(false); err != nil {
		errs = append(errs, err)
	}
	if err := f.line.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Pair drives indicators A and B.
type Pair struct {
	a, b     *Flasher
	position logic.Position
}

// NewPair creates a Pair showing the anomaly pattern until Show is called.
func NewPair(a, b Line) *Pair {
	p := &Pair{a: NewFlasher(a, Pattern{}), b: NewFlasher(b, Pattern{})}
	p.Show(logic.Unknown)
	return p
}

// Show selects the patterns for pos. Takes effect on the next Refresh.
func (p *Pair) Show(pos logic.Position) {
	p.position = pos
	pa, pb := Patterns(pos)
	p.a.SetPattern(pa)
	p.b.SetPattern(pb)
}

// Showing returns the position currently displayed.
func (p *Pair) Showing() logic.Position {
	return p.position
}

// Refresh updates both outputs for monotonic time nowMs.
func (p *Pair) Refresh(nowMs uint64) error {
	var errs []error
	for i, f := range []*Flasher{p.a, p.b} {
		if err := f.Refresh(nowMs); err != nil {
			errs = append(errs, fmt.Errorf("indicator %c: %w", 'A'+i, err))
		}
	}
	return errors.Join(errs...)
}

// Close turns both indicators off and releases them.
func (p *Pair) Close() error {
	return errors.Join(p.a.Close(), p.b.Close())
}

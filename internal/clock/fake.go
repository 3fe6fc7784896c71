package clock

import "time"

// Fake is a manually advanced clock for tests.
type Fake struct {
	// Mono is the value returned by NowMonotonicMs.
	Mono uint64

	// Wall is the value returned by NowWall.
	Wall time.Time

	// WallError, if set, will be returned by NowWall.
	WallError error
}

// NewFake creates a Fake at the given wall time with the monotonic counter at mono.
func NewFake(wall time.Time, mono uint64) *Fake {
	return &Fake{Mono: mono, Wall: wall}
}

// NowMonotonicMs returns Mono.
func (f *Fake) NowMonotonicMs() uint64 {
	return f.Mono
}

// NowWall returns Wall, or WallError if set.
func (f *Fake) NowWall() (time.Time, error) {
	if f.WallError != nil {
		return time.Time{}, f.WallError
	}
	return f.Wall, nil
}

// Advance moves both clocks forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.Mono += uint64(d.Milliseconds())
	f.Wall = f.Wall.Add(d)
}

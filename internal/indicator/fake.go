package indicator

// FakeLine is a test double that records output levels.
type FakeLine struct {
	// Values contains every level written, in order.
	Values []bool

	// SetError, if set, will be returned by Set (nothing is recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeLine creates a FakeLine.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// Set records the level.
func (f *FakeLine) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, on)
	return nil
}

// On returns the last level written (false if none).
func (f *FakeLine) On() bool {
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded levels.
func (f *FakeLine) Reset() {
	f.Values = nil
	f.Closed = false
	f.SetError = nil
}

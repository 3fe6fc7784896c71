package actuator

// Fake is a test double that records commanded pulse widths.
type Fake struct {
	// Writes contains every value passed to a successful SetPosition.
	Writes []int

	// SetError, if set, will be returned by SetPosition (nothing is recorded).
	SetError error

	// ReadError, if set, will be returned by Position.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates an undriven Fake.
func NewFake() *Fake {
	return &Fake{}
}

// SetPosition records value.
func (f *Fake) SetPosition(value int) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, value)
	return nil
}

// Position returns the last recorded value.
func (f *Fake) Position() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Writes) == 0 {
		return 0, ErrNotDriven
	}
	return f.Writes[len(f.Writes)-1], nil
}

// Close marks the actuator as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

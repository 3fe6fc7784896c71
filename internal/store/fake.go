package store

import "github.com/sweeney/valve-supervisor/internal/logic"

// Fake is an in-memory PositionStore for tests.
type Fake struct {
	// Value is the stored position; Has reports whether one exists.
	Value logic.Position
	Has   bool

	// Writes counts successful Store calls.
	Writes int

	// LoadError and StoreError, if set, are returned by Load and Store.
	LoadError  error
	StoreError error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{}
}

// Load returns the stored value.
func (f *Fake) Load() (logic.Position, bool, error) {
	if f.LoadError != nil {
		return logic.Unknown, false, f.LoadError
	}
	return f.Value, f.Has, nil
}

// Store records pos. Home is rejected like the real store.
func (f *Fake) Store(pos logic.Position) error {
	if f.StoreError != nil {
		return f.StoreError
	}
	if pos != logic.Bottom && pos != logic.Top {
		return ErrHomeNotStorable
	}
	f.Value = pos
	f.Has = true
	f.Writes++
	return nil
}

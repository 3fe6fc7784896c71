package command

// FakeSource is a test double that yields scripted bytes.
type FakeSource struct {
	// Bytes are returned in order, one per TryReadByte call.
	Bytes []byte

	// Reads counts TryReadByte calls.
	Reads int
}

// NewFakeSource creates a FakeSource yielding the given bytes.
func NewFakeSource(b ...byte) *FakeSource {
	return &FakeSource{Bytes: b}
}

// TryReadByte returns the next scripted byte.
func (f *FakeSource) TryReadByte() (byte, bool) {
	f.Reads++
	if len(f.Bytes) == 0 {
		return 0, false
	}
	b := f.Bytes[0]
	f.Bytes = f.Bytes[1:]
	return b, true
}

// Send appends bytes to be returned by later reads.
func (f *FakeSource) Send(b ...byte) {
	f.Bytes = append(f.Bytes, b...)
}

// FakeLevel is a test double for a request input.
type FakeLevel struct {
	// Level is returned by Value.
	Level int

	// Err, if set, will be returned by Value.
	Err error
}

// Value returns Level or Err.
func (f *FakeLevel) Value() (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Level, nil
}

package power

// FakeSensor is a test double that returns scripted readings.
type FakeSensor struct {
	// Voltages contains scripted millivolt readings. Each call to
	// ReadVoltageMV consumes the next one; the last is repeated.
	Voltages []int32

	// CurrentMA is returned by every ReadCurrentMA.
	CurrentMA int32

	// VoltageError, if set, will be returned by ReadVoltageMV.
	VoltageError error

	// CurrentError, if set, will be returned by ReadCurrentMA.
	CurrentError error

	index int
}

// NewFakeSensor creates a FakeSensor with the given voltage samples.
func NewFakeSensor(voltages ...int32) *FakeSensor {
	return &FakeSensor{Voltages: voltages}
}

// ReadVoltageMV returns the next scripted voltage.
func (f *FakeSensor) ReadVoltageMV() (int32, error) {
	if f.VoltageError != nil {
		return 0, f.VoltageError
	}
	if len(f.Voltages) == 0 {
		return 0, nil
	}
	v := f.Voltages[f.index]
	if f.index < len(f.Voltages)-1 {
		f.index++
	}
	return v, nil
}

// ReadCurrentMA returns CurrentMA.
func (f *FakeSensor) ReadCurrentMA() (int32, error) {
	if f.CurrentError != nil {
		return 0, f.CurrentError
	}
	return f.CurrentMA, nil
}

// Set replaces the scripted voltages with a single constant reading.
func (f *FakeSensor) Set(mv int32) {
	f.Voltages = []int32{mv}
	f.index = 0
}

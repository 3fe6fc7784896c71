package telemetry

// FakeSink records emitted records for test assertions.
type FakeSink struct {
	// Records contains all telemetry records that were accepted.
	Records []Record

	// Errors contains all error records that were accepted.
	Errors []ErrorRecord

	// EmitErr, if set, will be returned by Emit and EmitError (nothing is recorded).
	EmitErr error
}

// NewFakeSink creates a FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Emit records r.
func (f *FakeSink) Emit(r Record) error {
	if f.EmitErr != nil {
		return f.EmitErr
	}
	f.Records = append(f.Records, r)
	return nil
}

// EmitError records r.
func (f *FakeSink) EmitError(r ErrorRecord) error {
	if f.EmitErr != nil {
		return f.EmitErr
	}
	f.Errors = append(f.Errors, r)
	return nil
}

// ErrorsOfKind returns the error records of kind k.
func (f *FakeSink) ErrorsOfKind(k ErrorKind) []ErrorRecord {
	var out []ErrorRecord
	for _, r := range f.Errors {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// Reset clears recorded records.
func (f *FakeSink) Reset() {
	f.Records = nil
	f.Errors = nil
	f.EmitErr = nil
}

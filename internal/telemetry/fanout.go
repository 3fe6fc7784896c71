package telemetry

import "errors"

// Fanout delivers each record to every sink. A failing sink does not stop
// delivery to the others; all failures are joined into the returned error.
type Fanout []Sink

// Emit sends r to all sinks.
func (f Fanout) Emit(r Record) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitError sends r to all sinks.
func (f Fanout) EmitError(r ErrorRecord) error {
	var errs []error
	for _, s := range f {
		if err := s.EmitError(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package mqtt

import "github.com/sweeney/valve-supervisor/internal/telemetry"

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Records contains all telemetry records that were published.
	Records []telemetry.Record

	// Errors contains all error records that were published.
	Errors []telemetry.ErrorRecord

	// Payloads contains the JSON payloads of telemetry and error records, in order.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Emit and EmitError.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Emit records the telemetry record.
func (f *FakePublisher) Emit(r telemetry.Record) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatTelemetryPayload(r)
	if err != nil {
		return err
	}
	f.Records = append(f.Records, r)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// EmitError records the error record.
func (f *FakePublisher) EmitError(r telemetry.ErrorRecord) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatErrorPayload(r)
	if err != nil {
		return err
	}
	f.Errors = append(f.Errors, r)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Records = nil
	f.Errors = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}

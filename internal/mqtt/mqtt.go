// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/valve-supervisor/internal/telemetry"
)

// TopicTelemetry is the MQTT topic for telemetry records.
const TopicTelemetry = "field/valve/telemetry"

// TopicErrors is the MQTT topic for error records.
const TopicErrors = "field/valve/errors"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "field/valve/system"

// Publisher publishes telemetry and lifecycle events to MQTT.
// It is a telemetry.Sink so it can sit in a telemetry.Fanout.
type Publisher interface {
	telemetry.Sink

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TelemetryPayload is the MQTT message payload for a telemetry record.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the telemetry record details.
type TelemetryInner struct {
	Timestamp string `json:"timestamp"`
	VoltageMV int32  `json:"voltage_mv"`
	CurrentMA int32  `json:"current_ma"`
	Position  int    `json:"position"`
}

// FormatTelemetryPayload creates the JSON payload for a telemetry record.
// The timestamp uses the same rendering as the CSV segment log.
func FormatTelemetryPayload(r telemetry.Record) ([]byte, error) {
	return json.Marshal(TelemetryPayload{
		Telemetry: TelemetryInner{
			Timestamp: telemetry.FormatTimestamp(r.Timestamp),
			VoltageMV: r.VoltageMV,
			CurrentMA: r.CurrentMA,
			Position:  r.Position,
		},
	})
}

// ErrorPayload is the MQTT message payload for an error record.
type ErrorPayload struct {
	Error ErrorInner `json:"error"`
}

// ErrorInner contains the error record details.
type ErrorInner struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// FormatErrorPayload creates the JSON payload for an error record.
func FormatErrorPayload(r telemetry.ErrorRecord) ([]byte, error) {
	msg := ""
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return json.Marshal(ErrorPayload{
		Error: ErrorInner{
			Timestamp: telemetry.FormatTimestamp(r.Timestamp),
			Kind:      string(r.Kind),
			Message:   msg,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Package telemetry formats and emits power/position records.
//
// The supervisor sees one logical Sink; Fanout duplicates records to the
// local segment log, the companion serial link and MQTT.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrUnavailable marks a sink whose medium is not ready (card missing,
// port closed). Callers drop the record and carry on.
var ErrUnavailable = errors.New("telemetry: sink unavailable")

// Header is the first line of every segment.
const Header = "timestamp,voltage,current,valve_position"

// TimestampLayout renders wall-clock fields as-is with a literal Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Record is one telemetry sample.
type Record struct {
	Timestamp time.Time
	VoltageMV int32
	CurrentMA int32
	// Position is the actuator's native set-point, not the symbolic name.
	Position int
}

// ErrorKind classifies error records.
type ErrorKind string

const (
	KindSensorRead    ErrorKind = "sensor_read"
	KindActuatorWrite ErrorKind = "actuator_write"
	KindActuatorRead  ErrorKind = "actuator_read"
	KindStorage       ErrorKind = "storage"
	KindClock         ErrorKind = "clock"
	KindIndicator     ErrorKind = "indicator"
)

// ErrorRecord reports a steady-state fault.
type ErrorRecord struct {
	Timestamp time.Time
	Kind      ErrorKind
	Err       error
}

// Sink accepts telemetry and error records.
type Sink interface {
	Emit(r Record) error
	EmitError(r ErrorRecord) error
}

// FormatTimestamp renders t in the telemetry timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatLine renders r as a CSV line without trailing newline:
// timestamp,voltage_mv,current_ma,position_value.
func FormatLine(r Record) string {
	b := make([]byte, 0, 48)
	b = append(b, FormatTimestamp(r.Timestamp)...)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.VoltageMV), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.CurrentMA), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.Position), 10)
	return string(b)
}

// FormatErrorLine renders an error record for line-oriented sinks.
func FormatErrorLine(r ErrorRecord) string {
	msg := "unknown error"
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return fmt.Sprintf("Error at %s: %s: %s", FormatTimestamp(r.Timestamp), r.Kind, msg)
}

// SegmentName returns the segment file name for the day containing t.
func SegmentName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format("2006-01-02") + ".csv"
}

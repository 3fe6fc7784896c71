package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	BootID        string     `json:"boot_id"`
	Position      string     `json:"position"`
	SetPoint      int        `json:"setpoint"`
	UnderVoltage  bool       `json:"under_voltage"`
	VoltageMV     int32      `json:"bus_voltage_mv"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the running counts.
type CountsJSON struct {
	Moves            int `json:"moves"`
	Suppressed       int `json:"suppressed"`
	InterlockTrips   int `json:"interlock_trips"`
	Errors           int `json:"errors"`
	TelemetryDropped int `json:"telemetry_dropped"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode              string `json:"mode"`
	TickMs            int64  `json:"tick_ms"`
	ScheduleIntervalS uint32 `json:"schedule_interval_s"`
	LogIntervalS      uint32 `json:"log_interval_s"`
	MinMoveIntervalMs uint32 `json:"min_move_interval_ms"`
	ThresholdMV       int32  `json:"threshold_mv"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	Broker            string `json:"broker"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		BootID:        snap.BootID,
		Position:      snap.Position.String(),
		SetPoint:      snap.SetPoint,
		UnderVoltage:  snap.UnderVoltage,
		VoltageMV:     snap.VoltageMV,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Moves:            snap.Counts.Moves,
			Suppressed:       snap.Counts.Suppressed,
			InterlockTrips:   snap.Counts.InterlockTrips,
			Errors:           snap.Counts.Errors,
			TelemetryDropped: snap.Counts.TelemetryDropped,
		},
		Config: ConfigJSON{
			Mode:              snap.Config.Mode,
			TickMs:            snap.Config.TickMs,
			ScheduleIntervalS: snap.Config.ScheduleIntervalS,
			LogIntervalS:      snap.Config.LogIntervalS,
			MinMoveIntervalMs: snap.Config.MinMoveIntervalMs,
			ThresholdMV:       snap.Config.ThresholdMV,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			Broker:            snap.Config.Broker,
		},
	}
}

// FormatJSON returns the JSON status for the HTTP endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

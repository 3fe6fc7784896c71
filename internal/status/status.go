// Package status provides a thread-safe status tracker for the valve-supervisor daemon.
// It is read by the HTTP status endpoint and by MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/valve-supervisor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode              string
	TickMs            int64
	ScheduleIntervalS uint32
	LogIntervalS      uint32
	MinMoveIntervalMs uint32
	ThresholdMV       int32
	HeartbeatMs       int64
	Broker            string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	BootID        string
	Position      logic.Position
	SetPoint      int
	UnderVoltage  bool
	VoltageMV     int32
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// Each tracker gets a fresh boot ID so consumers can tell restarts apart.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    uuid.NewString(),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the valve state and running counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(pos logic.Position, setPoint int, underVoltage bool, voltageMV int32, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Position = pos
	t.snap.SetPoint = setPoint
	t.snap.UnderVoltage = underVoltage
	t.snap.VoltageMV = voltageMV
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// Package supervisor owns the valve state and runs one control-loop tick at
// a time: decide a target, apply the voltage interlock, rate-limit the move,
// persist it and emit telemetry on the log cadence.
//
// A Supervisor is not safe for concurrent use. All calls must come from the
// control goroutine.
package supervisor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/valve-supervisor/internal/actuator"
	"github.com/sweeney/valve-supervisor/internal/clock"
	"github.com/sweeney/valve-supervisor/internal/command"
	"github.com/sweeney/valve-supervisor/internal/indicator"
	"github.com/sweeney/valve-supervisor/internal/logic"
	"github.com/sweeney/valve-supervisor/internal/metrics"
	"github.com/sweeney/valve-supervisor/internal/power"
	"github.com/sweeney/valve-supervisor/internal/store"
	"github.com/sweeney/valve-supervisor/internal/telemetry"
)

// Sentinel errors wrapped into error records and returned by New.
var (
	ErrSensorRead         = errors.New("sensor read failed")
	ErrActuatorWrite      = errors.New("actuator write failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrClockUnavailable   = errors.New("clock unavailable")
)

// errorRecordIntervalMs throttles error records per kind.
const errorRecordIntervalMs = 1000

// inPositionSettleMs is how long after a move the in-position output stays low.
const inPositionSettleMs = 100

// Config holds the control parameters. Fixed for the life of a Supervisor.
type Config struct {
	Mode                    logic.Mode
	ScheduleIntervalSeconds uint32
	LogIntervalSeconds      uint32
	MinMoveIntervalMs       uint32
	ThresholdMV             int32
	SetPoints               logic.SetPoints
}

// Deps are the ports the supervisor drives. Commands is only required in
// commanded mode; Indicators, InPosition, Heartbeat and Metrics are optional.
type Deps struct {
	Clock      clock.Clock
	Actuator   actuator.Actuator
	Sensor     power.Sensor
	Store      store.PositionStore
	Commands   command.Source
	Sink       telemetry.Sink
	Indicators *indicator.Pair
	// InPosition is held low while the valve moves or is away from the
	// requested position, and high once it has settled there.
	InPosition indicator.Line
	// Heartbeat blinks while the control loop runs.
	Heartbeat *indicator.Flasher
	Metrics   *metrics.Metrics
}

// State is the supervisor's persistent-across-ticks state.
type State struct {
	// Commanded is the last position written to the actuator without error.
	Commanded logic.Position
	// LastMoveAt is the monotonic ms of the last successful actuation.
	LastMoveAt uint64
	// LastLogAt is the wall-clock time of the last telemetry emission.
	LastLogAt time.Time
	// UnderVoltage is the result of the latest interlock evaluation.
	UnderVoltage bool
}

// Supervisor is the orchestration state machine.
type Supervisor struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	state State

	// target is the standing request: the last scheduled slot or the last
	// command received. The interlock may override it; it is never Home.
	target logic.Position

	// driven is false until the first successful actuation, so the first
	// eligible tick restores the actuator even when target == Commanded.
	driven bool

	// tripExceptionUsed records that the one unconditional interlock move
	// allowed per boot has been spent.
	tripExceptionUsed bool

	inPosition        bool
	inPositionWritten bool

	suppressing logic.Position
	lastWall    time.Time
	lastVoltage int32
	counts      logic.Counts
	lastErrAt   map[telemetry.ErrorKind]uint64
}

// CheckClock reads the wall clock once, wrapping a failure in
// ErrClockUnavailable. Callers run it before initialising actuator hardware
// so an unset clock leaves the valve where it powered up.
func CheckClock(c clock.Clock) (time.Time, error) {
	wall, err := c.NowWall()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	return wall, nil
}

// New validates cfg, checks the clock and seeds state from the store.
//
// If the wall clock cannot be read New fails with ErrClockUnavailable without
// writing to the actuator. New does not construct the actuator; see
// CheckClock for the check that must precede hardware initialisation. A
// store that cannot be read is reported and treated as empty.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Supervisor, error) {
	if err := validate(cfg, deps); err != nil {
		return nil, err
	}

	wall, err := CheckClock(deps.Clock)
	if err != nil {
		return nil, err
	}
	now := deps.Clock.NowMonotonicMs()

	s := &Supervisor{
		cfg:       cfg,
		deps:      deps,
		logger:    logger,
		lastWall:  wall,
		lastErrAt: make(map[telemetry.ErrorKind]uint64),
	}

	seed := logic.Bottom
	pos, ok, err := deps.Store.Load()
	switch {
	case err != nil:
		logger.Warn("load persisted position, defaulting to bottom", zap.Error(err))
		s.reportError(now, telemetry.KindStorage, fmt.Errorf("%w: load: %v", ErrStorageUnavailable, err))
	case ok && (pos == logic.Bottom || pos == logic.Top):
		seed = pos
	}

	s.state = State{
		Commanded: seed,
		// Wraps when now < MinMoveIntervalMs; AllowMove is wrap-safe.
		LastMoveAt: now - uint64(cfg.MinMoveIntervalMs),
	}
	s.target = seed

	logger.Info("supervisor ready",
		zap.String("mode", string(cfg.Mode)),
		zap.Stringer("seed", seed),
		zap.Bool("persisted", ok && err == nil),
	)
	return s, nil
}

func validate(cfg Config, deps Deps) error {
	if _, err := logic.ParseMode(string(cfg.Mode)); err != nil {
		return err
	}
	if err := cfg.SetPoints.Validate(); err != nil {
		return err
	}
	if cfg.LogIntervalSeconds == 0 {
		return errors.New("log interval must be positive")
	}
	if cfg.Mode == logic.ModeScheduled && cfg.ScheduleIntervalSeconds == 0 {
		return errors.New("schedule interval must be positive")
	}
	switch {
	case deps.Clock == nil:
		return errors.New("missing clock")
	case deps.Actuator == nil:
		return errors.New("missing actuator")
	case deps.Sensor == nil:
		return errors.New("missing power sensor")
	case deps.Store == nil:
		return errors.New("missing position store")
	case deps.Sink == nil:
		return errors.New("missing telemetry sink")
	case cfg.Mode == logic.ModeCommanded && deps.Commands == nil:
		return errors.New("commanded mode requires a command source")
	}
	return nil
}

// Tick runs one pass of the control loop. Steady-state failures are absorbed
// and surfaced as error records; Tick never blocks on a sink.
func (s *Supervisor) Tick() {
	now := s.deps.Clock.NowMonotonicMs()
	wall, err := s.deps.Clock.NowWall()
	wallOK := err == nil
	if wallOK {
		s.lastWall = wall
	} else {
		s.reportError(now, telemetry.KindClock, fmt.Errorf("%w: %v", ErrClockUnavailable, err))
	}

	requested := s.request(wall, wallOK)

	voltage, err := s.deps.Sensor.ReadVoltageMV()
	if err != nil {
		voltage = 0
		s.reportError(now, telemetry.KindSensorRead, fmt.Errorf("%w: voltage: %v", ErrSensorRead, err))
	}
	s.lastVoltage = voltage
	s.deps.Metrics.BusVoltage(voltage)

	effective, tripped := logic.ApplyInterlock(requested, voltage, s.cfg.ThresholdMV)
	s.noteInterlock(tripped, voltage)

	if effective != s.state.Commanded || !s.driven {
		// The first interlock move after boot is not rate limited.
		unconditional := tripped && !s.tripExceptionUsed
		if unconditional || logic.AllowMove(now, s.state.LastMoveAt, s.cfg.MinMoveIntervalMs) {
			s.move(now, effective, tripped)
		} else {
			s.noteSuppressed(effective)
		}
	}

	s.updateInPosition(now, effective)

	if wallOK && logic.LogDue(wall, s.state.LastLogAt, s.cfg.LogIntervalSeconds) {
		s.state.LastLogAt = wall
		s.logTelemetry(now, wall)
	}

	if s.deps.Indicators != nil {
		if err := s.deps.Indicators.Refresh(now); err != nil {
			s.reportError(now, telemetry.KindIndicator, err)
		}
	}
	if s.deps.Heartbeat != nil {
		if err := s.deps.Heartbeat.Refresh(now); err != nil {
			s.reportError(now, telemetry.KindIndicator, fmt.Errorf("heartbeat: %w", err))
		}
	}
}

// updateInPosition drives the in-position output: high only when the valve
// holds the effective request, that request is not Home, and the last move
// has had time to settle.
func (s *Supervisor) updateInPosition(now uint64, effective logic.Position) {
	if s.deps.InPosition == nil {
		return
	}
	want := s.driven &&
		effective == s.state.Commanded &&
		effective != logic.Home &&
		now-s.state.LastMoveAt >= inPositionSettleMs
	if s.inPositionWritten && want == s.inPosition {
		return
	}
	if err := s.deps.InPosition.Set(want); err != nil {
		s.inPositionWritten = false
		s.reportError(now, telemetry.KindIndicator, fmt.Errorf("in-position: %w", err))
		return
	}
	s.inPosition, s.inPositionWritten = want, true
}

// request updates and returns the standing target.
func (s *Supervisor) request(wall time.Time, wallOK bool) logic.Position {
	switch s.cfg.Mode {
	case logic.ModeScheduled:
		if wallOK {
			s.target = logic.NextScheduledPosition(wall, s.cfg.ScheduleIntervalSeconds)
		}
	case logic.ModeCommanded:
		if b, ok := s.deps.Commands.TryReadByte(); ok {
			if pos, ok := command.ParseDirective(b); ok {
				if pos != s.target {
					s.logger.Info("command received", zap.Stringer("target", pos))
				}
				s.target = pos
			}
		}
	}
	return s.target
}

func (s *Supervisor) noteInterlock(tripped bool, voltage int32) {
	switch {
	case tripped && !s.state.UnderVoltage:
		s.counts.InterlockTrips++
		s.deps.Metrics.InterlockTrip()
		s.logger.Warn("under-voltage, forcing home",
			zap.Int32("voltage_mv", voltage),
			zap.Int32("threshold_mv", s.cfg.ThresholdMV),
		)
	case !tripped && s.state.UnderVoltage:
		s.logger.Info("voltage recovered", zap.Int32("voltage_mv", voltage))
	}
	s.state.UnderVoltage = tripped
}

func (s *Supervisor) noteSuppressed(effective logic.Position) {
	if s.suppressing == effective {
		return
	}
	s.suppressing = effective
	s.counts.Suppressed++
	s.deps.Metrics.MoveSuppressed()
	s.logger.Debug("move deferred by rate limiter", zap.Stringer("target", effective))
}

func (s *Supervisor) move(now uint64, effective logic.Position, tripped bool) {
	sp := s.cfg.SetPoints.For(effective)
	if err := s.deps.Actuator.SetPosition(sp); err != nil {
		s.reportError(now, telemetry.KindActuatorWrite,
			fmt.Errorf("%w: %s (%d): %v", ErrActuatorWrite, effective, sp, err))
		return
	}

	from := s.state.Commanded
	s.state.Commanded = effective
	s.state.LastMoveAt = now
	s.driven = true
	s.suppressing = logic.Unknown
	if tripped {
		s.tripExceptionUsed = true
	}
	s.counts.Moves++
	s.deps.Metrics.Move(effective.String(), sp)
	s.logger.Info("valve moved",
		zap.Stringer("from", from),
		zap.Stringer("to", effective),
		zap.Int("setpoint", sp),
		zap.Bool("under_voltage", tripped),
	)

	if s.deps.Indicators != nil {
		s.deps.Indicators.Show(effective)
	}

	if effective == logic.Home {
		return
	}
	if err := s.deps.Store.Store(effective); err != nil {
		s.logger.Error("persist position", zap.Stringer("position", effective), zap.Error(err))
		s.reportError(now, telemetry.KindStorage, fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
	}
}

func (s *Supervisor) logTelemetry(now uint64, wall time.Time) {
	voltage, err := s.deps.Sensor.ReadVoltageMV()
	if err != nil {
		voltage = 0
		s.reportError(now, telemetry.KindSensorRead, fmt.Errorf("%w: voltage: %v", ErrSensorRead, err))
	}
	current, err := s.deps.Sensor.ReadCurrentMA()
	if err != nil {
		current = 0
		s.reportError(now, telemetry.KindSensorRead, fmt.Errorf("%w: current: %v", ErrSensorRead, err))
	}

	pos, err := s.deps.Actuator.Position()
	if err != nil {
		if !errors.Is(err, actuator.ErrNotDriven) {
			s.reportError(now, telemetry.KindActuatorRead, err)
		}
		pos = s.cfg.SetPoints.For(s.state.Commanded)
	}

	rec := telemetry.Record{Timestamp: wall, VoltageMV: voltage, CurrentMA: current, Position: pos}
	if err := s.deps.Sink.Emit(rec); err != nil {
		s.counts.TelemetryDropped++
		s.deps.Metrics.TelemetryDropped()
		s.logger.Warn("telemetry dropped", zap.Error(err))
	} else {
		s.deps.Metrics.TelemetryRecord()
	}

	name, _ := s.cfg.SetPoints.Classify(pos)
	s.logger.Info("logged power",
		zap.Int32("voltage_mv", voltage),
		zap.Int32("current_ma", current),
		zap.Int("setpoint", pos),
		zap.Stringer("position", name),
	)
}

// reportError counts err and, at most once per second per kind, emits an
// error record stamped with the last known wall time.
func (s *Supervisor) reportError(now uint64, kind telemetry.ErrorKind, err error) {
	s.counts.Errors++
	s.deps.Metrics.Error(string(kind))

	if last, ok := s.lastErrAt[kind]; ok && now-last < errorRecordIntervalMs {
		return
	}
	s.lastErrAt[kind] = now

	s.logger.Warn("error record", zap.String("kind", string(kind)), zap.Error(err))
	rec := telemetry.ErrorRecord{Timestamp: s.lastWall, Kind: kind, Err: err}
	if sinkErr := s.deps.Sink.EmitError(rec); sinkErr != nil {
		s.logger.Warn("error record dropped", zap.Error(sinkErr))
	}
}

// State returns a copy of the current state.
func (s *Supervisor) State() State {
	return s.state
}

// Counts returns the running totals since boot.
func (s *Supervisor) Counts() logic.Counts {
	return s.counts
}

// SetPoint returns the actuator set-point of the commanded position.
func (s *Supervisor) SetPoint() int {
	return s.cfg.SetPoints.For(s.state.Commanded)
}

// VoltageMV returns the bus voltage seen by the latest interlock evaluation.
func (s *Supervisor) VoltageMV() int32 {
	return s.lastVoltage
}

// Target returns the standing request before the interlock is applied.
func (s *Supervisor) Target() logic.Position {
	return s.target
}

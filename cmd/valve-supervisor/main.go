// Command valve-supervisor drives a two-position valve from a wall-clock
// schedule or serial commands, forces it home on low bus voltage and logs
// power telemetry.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/valve-supervisor/internal/actuator"
	"github.com/sweeney/valve-supervisor/internal/clock"
	"github.com/sweeney/valve-supervisor/internal/command"
	"github.com/sweeney/valve-supervisor/internal/config"
	"github.com/sweeney/valve-supervisor/internal/indicator"
	"github.com/sweeney/valve-supervisor/internal/logic"
	"github.com/sweeney/valve-supervisor/internal/metrics"
	"github.com/sweeney/valve-supervisor/internal/mqtt"
	"github.com/sweeney/valve-supervisor/internal/power"
	"github.com/sweeney/valve-supervisor/internal/status"
	"github.com/sweeney/valve-supervisor/internal/store"
	"github.com/sweeney/valve-supervisor/internal/supervisor"
	"github.com/sweeney/valve-supervisor/internal/telemetry"
	"github.com/sweeney/valve-supervisor/internal/web"
)

func main() {
	fs := pflag.NewFlagSet("valve-supervisor", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path, _ := fs.GetString(config.FlagConfig)
	cfg, err := config.Load(path, fs)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	printState, _ := fs.GetBool(config.FlagPrintState)

	if err := run(cfg, printState, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, printState bool, logger *zap.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init host drivers: %w", err)
	}

	// Initialize power sensor
	powerBus, err := i2creg.Open(cfg.Power.I2CBus)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", cfg.Power.I2CBus, err)
	}
	defer powerBus.Close()

	var closers []func() error
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	sensor, err := power.NewINA260(powerBus, cfg.Power.Address)
	if err != nil {
		return fmt.Errorf("init power sensor: %w", err)
	}

	positions := store.NewFileStore(cfg.Store.Path)

	// Print state mode
	if printState {
		return printCurrentState(os.Stdout, sensor, positions, cfg.Interlock.ThresholdMV)
	}

	clk := clock.NewSystem()

	// The wall clock is checked before the actuator driver writes its
	// registers, so an unset clock leaves the valve output untouched.
	act, err := startActuator(clk, func() (actuator.Actuator, error) {
		var actBus i2c.Bus = powerBus
		if cfg.Actuator.I2CBus != cfg.Power.I2CBus {
			bus, err := i2creg.Open(cfg.Actuator.I2CBus)
			if err != nil {
				return nil, fmt.Errorf("open i2c bus %q: %w", cfg.Actuator.I2CBus, err)
			}
			closers = append(closers, bus.Close)
			actBus = bus
		}
		pca, err := actuator.NewPCA9685(actBus, cfg.Actuator.Address, cfg.Actuator.Channel, cfg.Actuator.PWMHz)
		if err != nil {
			return nil, err
		}
		return pca, nil
	})
	if err != nil {
		return err
	}
	defer act.Close()

	// Indicators are optional; the valve runs without them.
	var indicators *indicator.Pair
	lineA, lineB, err := indicator.OpenLines(cfg.Indicator.Chip, cfg.Indicator.PinA, cfg.Indicator.PinB)
	if err != nil {
		logger.Warn("indicators disabled", zap.Error(err))
	} else {
		indicators = indicator.NewPair(lineA, lineB)
		defer indicators.Close()
	}

	var inPosition indicator.Line
	if cfg.Indicator.InPositionPin >= 0 {
		line, err := indicator.OpenLine(cfg.Indicator.Chip, cfg.Indicator.InPositionPin, "valve-in-position")
		if err != nil {
			return fmt.Errorf("open in-position output: %w", err)
		}
		defer line.Close()
		inPosition = line
	}

	var heartbeatLED *indicator.Flasher
	if cfg.Indicator.HeartbeatPin >= 0 {
		line, err := indicator.OpenLine(cfg.Indicator.Chip, cfg.Indicator.HeartbeatPin, "valve-heartbeat")
		if err != nil {
			logger.Warn("heartbeat led disabled", zap.Error(err))
		} else {
			heartbeatLED = indicator.NewFlasher(line, indicator.HeartbeatPattern)
			defer heartbeatLED.Close()
		}
	}

	segments := telemetry.NewSegmentLog(cfg.Telemetry.Dir, cfg.Telemetry.FilePrefix)
	sinks := telemetry.Fanout{segments}

	// Command inputs: the companion serial link and the request pin
	var sources command.Merge
	if cfg.Serial.Port != "" {
		port, err := command.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return err
		}
		queue := command.NewQueue(command.DefaultQueueSize)
		stop := command.StartPump(port, queue, logger)
		defer stop()

		sources = append(sources, queue)
		sinks = append(sinks, telemetry.NewSerialEcho(port))
	}
	if cfg.Request.Pin >= 0 {
		line, err := command.OpenRequestLine(cfg.Request.Chip, cfg.Request.Pin)
		if err != nil {
			return fmt.Errorf("open request input: %w", err)
		}
		defer line.Close()
		sources = append(sources, command.NewLevelRequest(line, logger.Named("request")))
	}
	var commands command.Source
	if len(sources) > 0 {
		commands = sources
	}
	if cfg.ControlMode() == logic.ModeCommanded && commands == nil {
		return fmt.Errorf("commanded mode requires serial.port or request.pin")
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
		}, logger.Named("mqtt"))
		defer p.Close()
		publisher, mqttStatus = p, p
		sinks = append(sinks, p)
	}

	m := metrics.New()

	if wall, err := clk.NowWall(); err == nil {
		if err := segments.Start(wall); err != nil {
			logger.Warn("write reboot marker", zap.Error(err))
		}
	}

	sup, err := supervisor.New(supervisor.Config{
		Mode:                    cfg.ControlMode(),
		ScheduleIntervalSeconds: cfg.Schedule.IntervalSeconds,
		LogIntervalSeconds:      cfg.Telemetry.LogIntervalSeconds,
		MinMoveIntervalMs:       cfg.Actuator.MinMoveIntervalMs,
		ThresholdMV:             cfg.Interlock.ThresholdMV,
		SetPoints:               cfg.Actuator.SetPoints,
	}, supervisor.Deps{
		Clock:      clk,
		Actuator:   act,
		Sensor:     sensor,
		Store:      positions,
		Commands:   commands,
		Sink:       sinks,
		Indicators: indicators,
		InPosition: inPosition,
		Heartbeat:  heartbeatLED,
		Metrics:    m,
	}, logger.Named("supervisor"))
	if err != nil {
		return fmt.Errorf("init supervisor: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Mode:              cfg.Control.Mode,
		TickMs:            cfg.Control.TickInterval.Milliseconds(),
		ScheduleIntervalS: cfg.Schedule.IntervalSeconds,
		LogIntervalS:      cfg.Telemetry.LogIntervalSeconds,
		MinMoveIntervalMs: cfg.Actuator.MinMoveIntervalMs,
		ThresholdMV:       cfg.Interlock.ThresholdMV,
		HeartbeatMs:       cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:            cfg.MQTT.Broker,
	})
	updateTracker(tracker, sup, mqttStatus)

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			logger.Warn("failed to publish startup event", zap.Error(err))
		}
	}

	// Start HTTP metrics/status server
	if cfg.Metrics.Addr != "" {
		srv := web.New(cfg.Metrics.Addr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	logger.Info("started",
		zap.String("mode", cfg.Control.Mode),
		zap.Duration("tick", cfg.Control.TickInterval),
		zap.Uint32("schedule_interval_s", cfg.Schedule.IntervalSeconds),
		zap.Uint32("log_interval_s", cfg.Telemetry.LogIntervalSeconds),
		zap.Int32("threshold_mv", cfg.Interlock.ThresholdMV),
		zap.String("broker", cfg.MQTT.Broker),
	)

	ticker := time.NewTicker(cfg.Control.TickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sup, publisher, mqttStatus, tracker, cfg.MQTT.Heartbeat, time.Now, ticker.C, sigCh, logger)
}

// startActuator refuses to construct the actuator until the wall clock
// reads. open runs only after the check passes.
func startActuator(clk clock.Clock, open func() (actuator.Actuator, error)) (actuator.Actuator, error) {
	if _, err := supervisor.CheckClock(clk); err != nil {
		return nil, err
	}
	act, err := open()
	if err != nil {
		return nil, fmt.Errorf("init actuator: %w", err)
	}
	return act, nil
}

// runLoop ticks the supervisor until a signal arrives. publisher, mqttStatus
// and tracker may be nil.
func runLoop(sup *supervisor.Supervisor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, logger *zap.Logger) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", zap.Stringer("signal", s))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher == nil {
				return nil
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				updateTracker(tracker, sup, mqttStatus)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", zap.Error(err))
			}
			return nil

		case <-tick:
			sup.Tick()

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(tracker, sup, mqttStatus)
			}

			if heartbeat <= 0 || publisher == nil {
				continue
			}
			t := now()
			if t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			counts := sup.Counts()
			logger.Info("heartbeat",
				zap.Stringer("position", sup.State().Commanded),
				zap.Int("moves", counts.Moves),
				zap.Int("interlock_trips", counts.InterlockTrips),
				zap.Int("errors", counts.Errors),
			)
			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				logger.Warn("heartbeat publish error", zap.Error(err))
			}
		}
	}
}

func updateTracker(tracker *status.Tracker, sup *supervisor.Supervisor, mqttStatus mqtt.ConnectionStatus) {
	st := sup.State()
	tracker.Update(st.Commanded, sup.SetPoint(), st.UnderVoltage, sup.VoltageMV(), sup.Counts())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// printCurrentState reads the sensor and the persisted position once.
func printCurrentState(w io.Writer, sensor power.Sensor, positions store.PositionStore, thresholdMV int32) error {
	voltage, err := sensor.ReadVoltageMV()
	if err != nil {
		return fmt.Errorf("read voltage: %w", err)
	}
	current, err := sensor.ReadCurrentMA()
	if err != nil {
		return fmt.Errorf("read current: %w", err)
	}

	stored := "none"
	if pos, ok, err := positions.Load(); err != nil {
		stored = "unreadable (" + err.Error() + ")"
	} else if ok {
		stored = pos.String()
	}

	interlock := "ok"
	if _, tripped := logic.ApplyInterlock(logic.Bottom, voltage, thresholdMV); tripped {
		interlock = "tripped"
	}

	fmt.Fprintf(w, "Voltage: %d mV, Current: %d mA, Stored: %s, Interlock: %s\n", voltage, current, stored, interlock)
	return nil
}

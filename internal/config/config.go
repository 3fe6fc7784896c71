// Package config loads daemon configuration from a YAML file, VALVE_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/valve-supervisor/internal/actuator"
	"github.com/sweeney/valve-supervisor/internal/logic"
)

// EnvPrefix is prepended to upper-cased keys, e.g. VALVE_MQTT_BROKER.
const EnvPrefix = "VALVE"

type Config struct {
	Control   ControlConfig   `mapstructure:"control"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Actuator  ActuatorConfig  `mapstructure:"actuator"`
	Interlock InterlockConfig `mapstructure:"interlock"`
	Power     PowerConfig     `mapstructure:"power"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Request   RequestConfig   `mapstructure:"request"`
	Store     StoreConfig     `mapstructure:"store"`
	Serial    SerialConfig    `mapstructure:"serial"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ControlConfig struct {
	Mode         string        `mapstructure:"mode"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type ScheduleConfig struct {
	IntervalSeconds uint32 `mapstructure:"interval_seconds"`
}

type TelemetryConfig struct {
	LogIntervalSeconds uint32 `mapstructure:"log_interval_seconds"`
	Dir                string `mapstructure:"dir"`
	FilePrefix         string `mapstructure:"file_prefix"`
}

type ActuatorConfig struct {
	MinMoveIntervalMs uint32          `mapstructure:"min_move_interval_ms"`
	SetPoints         logic.SetPoints `mapstructure:"setpoints"`
	I2CBus            string          `mapstructure:"i2c_bus"`
	Address           uint16          `mapstructure:"address"`
	Channel           int             `mapstructure:"channel"`
	PWMHz             int64           `mapstructure:"pwm_hz"`
}

type InterlockConfig struct {
	ThresholdMV int32 `mapstructure:"threshold_mv"`
}

type PowerConfig struct {
	I2CBus  string `mapstructure:"i2c_bus"`
	Address uint16 `mapstructure:"address"`
}

// IndicatorConfig configures the GPIO outputs. A negative pin disables
// the in-position and heartbeat outputs.
type IndicatorConfig struct {
	Chip          string `mapstructure:"chip"`
	PinA          int    `mapstructure:"pin_a"`
	PinB          int    `mapstructure:"pin_b"`
	InPositionPin int    `mapstructure:"in_position_pin"`
	HeartbeatPin  int    `mapstructure:"heartbeat_pin"`
}

// RequestConfig configures the discrete position request input. A negative
// Pin disables it.
type RequestConfig struct {
	Chip string `mapstructure:"chip"`
	Pin  int    `mapstructure:"pin"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// SerialConfig configures the companion link. An empty Port disables it.
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// MQTTConfig configures remote publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker    string        `mapstructure:"broker"`
	ClientID  string        `mapstructure:"client_id"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// MetricsConfig configures the HTTP endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Flag names that are not configuration keys.
const (
	FlagConfig     = "config"
	FlagPrintState = "print-state"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"mode":         "control.mode",
	"tick":         "control.tick_interval",
	"broker":       "mqtt.broker",
	"heartbeat":    "mqtt.heartbeat",
	"pin-a":        "indicator.pin_a",
	"pin-b":        "indicator.pin_b",
	"request-pin":  "request.pin",
	"serial-port":  "serial.port",
	"log-dir":      "telemetry.dir",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags defines the daemon's flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Path to YAML config file (optional)")
	fs.Bool(FlagPrintState, false, "Print voltage, current and stored position, then exit")
	fs.String("mode", string(logic.ModeScheduled), `Control mode ("scheduled" or "commanded")`)
	fs.Duration("tick", 100*time.Millisecond, "Control loop tick interval")
	fs.String("broker", "", "MQTT broker address (empty to disable)")
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.Int("pin-a", 17, "BCM pin number for indicator A")
	fs.Int("pin-b", 27, "BCM pin number for indicator B")
	fs.Int("request-pin", -1, "BCM pin number for the position request input (-1 to disable)")
	fs.String("serial-port", "", "Companion serial device (empty to disable)")
	fs.String("log-dir", "/var/log/valve-supervisor", "Directory for daily telemetry segments")
	fs.String("metrics-addr", "", "HTTP address for /metrics and /status.json (empty to disable)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("control.mode", string(logic.ModeScheduled))
	v.SetDefault("control.tick_interval", "100ms")
	v.SetDefault("schedule.interval_seconds", 30)
	v.SetDefault("telemetry.log_interval_seconds", 10)
	v.SetDefault("telemetry.dir", "/var/log/valve-supervisor")
	v.SetDefault("telemetry.file_prefix", "valve_log")
	v.SetDefault("actuator.min_move_interval_ms", 2000)
	v.SetDefault("actuator.setpoints.bottom", logic.DefaultSetPoints.Bottom)
	v.SetDefault("actuator.setpoints.top", logic.DefaultSetPoints.Top)
	v.SetDefault("actuator.setpoints.home", logic.DefaultSetPoints.Home)
	v.SetDefault("actuator.i2c_bus", "")
	v.SetDefault("actuator.address", 0x41)
	v.SetDefault("actuator.channel", 0)
	v.SetDefault("actuator.pwm_hz", 50)
	v.SetDefault("interlock.threshold_mv", 10000)
	v.SetDefault("power.i2c_bus", "")
	v.SetDefault("power.address", 0x40)
	v.SetDefault("indicator.chip", "gpiochip0")
	v.SetDefault("indicator.pin_a", 17)
	v.SetDefault("indicator.pin_b", 27)
	v.SetDefault("indicator.in_position_pin", -1)
	v.SetDefault("indicator.heartbeat_pin", -1)
	v.SetDefault("request.chip", "gpiochip0")
	v.SetDefault("request.pin", -1)
	v.SetDefault("store.path", "/var/lib/valve-supervisor/position")
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "valve-supervisor")
	v.SetDefault("mqtt.heartbeat", "15m")
	v.SetDefault("metrics.addr", "")
}

// Load builds the configuration. path may be empty to run on defaults,
// environment and flags only; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the supervisor relies on.
// All violations are reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logic.ParseMode(c.Control.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Control.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("control.tick_interval must be positive, got %v", c.Control.TickInterval))
	}
	if c.Schedule.IntervalSeconds == 0 {
		errs = append(errs, errors.New("schedule.interval_seconds must be positive"))
	}
	if c.Telemetry.LogIntervalSeconds == 0 {
		errs = append(errs, errors.New("telemetry.log_interval_seconds must be positive"))
	}
	if c.Telemetry.FilePrefix == "" {
		errs = append(errs, errors.New("telemetry.file_prefix must not be empty"))
	}
	if err := c.Actuator.SetPoints.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, sp := range []int{c.Actuator.SetPoints.Bottom, c.Actuator.SetPoints.Top, c.Actuator.SetPoints.Home} {
		if sp < actuator.MinPulseUs || sp > actuator.MaxPulseUs {
			errs = append(errs, fmt.Errorf("set-point %d outside %d..%d us", sp, actuator.MinPulseUs, actuator.MaxPulseUs))
		}
	}
	if c.Actuator.Channel < 0 || c.Actuator.Channel > 15 {
		errs = append(errs, fmt.Errorf("actuator.channel must be 0..15, got %d", c.Actuator.Channel))
	}
	if c.Actuator.PWMHz <= 0 {
		errs = append(errs, fmt.Errorf("actuator.pwm_hz must be positive, got %d", c.Actuator.PWMHz))
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if err := c.validatePins(); err != nil {
		errs = append(errs, err)
	}
	if c.MQTT.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("mqtt.heartbeat must not be negative, got %v", c.MQTT.Heartbeat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// validatePins rejects a GPIO pin assigned twice on the same chip.
func (c *Config) validatePins() error {
	type chipPin struct {
		chip string
		pin  int
	}
	used := map[chipPin]string{}
	for _, p := range []struct {
		key  string
		chip string
		pin  int
	}{
		{"indicator.pin_a", c.Indicator.Chip, c.Indicator.PinA},
		{"indicator.pin_b", c.Indicator.Chip, c.Indicator.PinB},
		{"indicator.in_position_pin", c.Indicator.Chip, c.Indicator.InPositionPin},
		{"indicator.heartbeat_pin", c.Indicator.Chip, c.Indicator.HeartbeatPin},
		{"request.pin", c.Request.Chip, c.Request.Pin},
	} {
		if p.pin < 0 {
			continue
		}
		k := chipPin{p.chip, p.pin}
		if other, ok := used[k]; ok {
			return fmt.Errorf("%s and %s both use pin %d on %s", other, p.key, p.pin, p.chip)
		}
		used[k] = p.key
	}
	return nil
}

// ControlMode returns the validated control mode.
func (c *Config) ControlMode() logic.Mode {
	m, _ := logic.ParseMode(c.Control.Mode)
	return m
}

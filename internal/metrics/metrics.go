// Package metrics exposes supervisor counters and gauges for Prometheus.
//
// All methods are safe on a nil *Metrics so the supervisor can run without
// a metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	moves            *prometheus.CounterVec
	suppressed       prometheus.Counter
	interlockTrips   prometheus.Counter
	errors           *prometheus.CounterVec
	telemetryRecords prometheus.Counter
	telemetryDropped prometheus.Counter
	busVoltage       prometheus.Gauge
	setPoint         prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valve_moves_total",
			Help: "Successful actuations by target position.",
		}, []string{"position"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valve_moves_suppressed_total",
			Help: "Moves held back by the minimum move interval.",
		}),
		interlockTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valve_interlock_trips_total",
			Help: "Transitions into the under-voltage state.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valve_errors_total",
			Help: "Error records raised by kind.",
		}, []string{"kind"}),
		telemetryRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valve_telemetry_records_total",
			Help: "Telemetry records emitted.",
		}),
		telemetryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valve_telemetry_dropped_total",
			Help: "Telemetry records at least one sink failed to take.",
		}),
		busVoltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "valve_bus_voltage_millivolts",
			Help: "Most recent bus voltage reading (0 on sensor failure).",
		}),
		setPoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "valve_commanded_setpoint",
			Help: "Actuator set-point of the last successful move.",
		}),
	}

	m.registry.MustRegister(
		m.moves,
		m.suppressed,
		m.interlockTrips,
		m.errors,
		m.telemetryRecords,
		m.telemetryDropped,
		m.busVoltage,
		m.setPoint,
	)
	return m
}

// Handler serves the private registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Move(position string, setPoint int) {
	if m == nil {
		return
	}
	m.moves.WithLabelValues(position).Inc()
	m.setPoint.Set(float64(setPoint))
}

func (m *Metrics) MoveSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) InterlockTrip() {
	if m == nil {
		return
	}
	m.interlockTrips.Inc()
}

func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) TelemetryRecord() {
	if m == nil {
		return
	}
	m.telemetryRecords.Inc()
}

func (m *Metrics) TelemetryDropped() {
	if m == nil {
		return
	}
	m.telemetryDropped.Inc()
}

func (m *Metrics) BusVoltage(mv int32) {
	if m == nil {
		return
	}
	m.busVoltage.Set(float64(mv))
}

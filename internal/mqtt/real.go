package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/valve-supervisor/internal/telemetry"
)

// DefaultBufferSize is the number of messages held while disconnected.
// At the default 10 s log interval this covers well over an hour of telemetry.
const DefaultBufferSize = 512

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker.
//
// Publishing never blocks the caller: while the connection is down messages
// are kept in a ring buffer and replayed from the OnConnect handler.
type RealPublisher struct {
	client paho.Client
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	buf           *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting in the background. Connection failures are retried by paho.
func NewRealPublisher(opts Options, logger *zap.Logger) *RealPublisher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		logger: logger,
		now:    time.Now,
		buf:    newRingBuffer(opts.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	logger.Info("mqtt connecting", zap.String("broker", opts.Broker), zap.String("client_id", opts.ClientID))
	return p
}

// newPublisher wires a publisher around an existing client without connecting.
func newPublisher(client paho.Client, logger *zap.Logger, bufferSize int) *RealPublisher {
	return &RealPublisher{
		client: client,
		logger: logger,
		now:    time.Now,
		buf:    newRingBuffer(bufferSize),
	}
}

// Emit publishes a telemetry record (QoS 0, not retained).
func (p *RealPublisher) Emit(r telemetry.Record) error {
	payload, err := FormatTelemetryPayload(r)
	if err != nil {
		return fmt.Errorf("format telemetry payload: %w", err)
	}
	p.publish(bufferedMsg{topic: TopicTelemetry, payload: payload})
	return nil
}

// EmitError publishes an error record (QoS 1, not retained).
func (p *RealPublisher) EmitError(r telemetry.ErrorRecord) error {
	payload, err := FormatErrorPayload(r)
	if err != nil {
		return fmt.Errorf("format error payload: %w", err)
	}
	p.publish(bufferedMsg{topic: TopicErrors, payload: payload, qos: 1})
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		if p.buf.push(msg) {
			p.logger.Warn("mqtt buffer full, dropping oldest", zap.Int("capacity", p.buf.capacity))
		}
		return
	}
	p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
}

// onConnect replays buffered messages in order and announces reconnections.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending := p.buf.drainAll()
	for _, msg := range pending {
		p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}

	if p.everConnected {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		p.client.Publish(TopicSystem, 1, false, payload)
		p.logger.Info("mqtt reconnected", zap.Int("replayed", len(pending)))
		return
	}
	p.everConnected = true
	p.logger.Info("mqtt connected", zap.Int("replayed", len(pending)))
}

// Package actuator drives the valve servo.
// The real implementation uses a PCA9685 PWM controller over I2C.
// The fake implementation allows testing without hardware.
package actuator

import "errors"

// ErrNotDriven is returned by Position before the first successful SetPosition.
var ErrNotDriven = errors.New("actuator: no position commanded yet")

// Actuator accepts servo set-points in microseconds of pulse width.
type Actuator interface {
	// SetPosition commands the servo to the given pulse width.
	SetPosition(value int) error

	// Position returns the last pulse width successfully commanded.
	Position() (int, error)

	// Close releases the actuator. The servo output is left as-is.
	Close() error
}

// Servo pulse limits accepted by SetPosition.
const (
	MinPulseUs = 500
	MaxPulseUs = 2500
)

package actuator

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
)

// pca9685 counters are 12 bits wide.
const pwmSteps = 4096

// PCA9685 drives one servo channel of a PCA9685 board.
type PCA9685 struct {
	dev     *pca9685.Dev
	channel int
	freqHz  int64
	last    int
	driven  bool
}

// NewPCA9685 configures the controller at addr on bus for servo output at
// freqHz (normally 50) and drives channel.
func NewPCA9685(bus i2c.Bus, addr uint16, channel int, freqHz int64) (*PCA9685, error) {
	if channel < 0 || channel > 15 {
		return nil, fmt.Errorf("pca9685: channel %d out of range", channel)
	}
	if freqHz <= 0 {
		return nil, fmt.Errorf("pca9685: invalid frequency %d", freqHz)
	}
	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("open pca9685 at 0x%02x: %w", addr, err)
	}
	if err := dev.SetPwmFreq(physic.Frequency(freqHz) * physic.Hertz); err != nil {
		return nil, fmt.Errorf("set pca9685 frequency: %w", err)
	}
	return &PCA9685{dev: dev, channel: channel, freqHz: freqHz}, nil
}

// SetPosition writes the pulse width to the channel.
func (p *PCA9685) SetPosition(value int) error {
	if value < MinPulseUs || value > MaxPulseUs {
		return fmt.Errorf("pulse %dus outside %d..%d", value, MinPulseUs, MaxPulseUs)
	}
	if err := p.dev.SetPwm(p.channel, 0, PulseToDuty(value, p.freqHz)); err != nil {
		return fmt.Errorf("write channel %d: %w", p.channel, err)
	}
	p.last = value
	p.driven = true
	return nil
}

// Position returns the last pulse width written. The PCA9685 does not
// report servo feedback, so this is the commanded value.
func (p *PCA9685) Position() (int, error) {
	if !p.driven {
		return 0, ErrNotDriven
	}
	return p.last, nil
}

// Close is a no-op: the bus is owned by the caller and the servo keeps
// holding its last pulse.
func (p *PCA9685) Close() error {
	return nil
}

// PulseToDuty converts a pulse width to the PCA9685 off-count for a period
// of 1/freqHz seconds.
func PulseToDuty(pulseUs int, freqHz int64) gpio.Duty {
	return gpio.Duty(int64(pulseUs) * freqHz * pwmSteps / 1_000_000)
}

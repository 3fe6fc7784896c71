//go:build linux

package indicator

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOLine is an indicator on a Linux GPIO character device line.
type GPIOLine struct {
	line *gpiocdev.Line
	pin  int
}

// OpenLine requests pin on chip as an output, initially low.
func OpenLine(chip string, pin int, consumer string) (*GPIOLine, error) {
	l, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", consumer, pin, err)
	}
	return &GPIOLine{line: l, pin: pin}, nil
}

// OpenLines requests pinA and pinB on chip as outputs, initially low.
func OpenLines(chip string, pinA, pinB int) (*GPIOLine, *GPIOLine, error) {
	a, err := OpenLine(chip, pinA, "valve-indicator-a")
	if err != nil {
		return nil, nil, err
	}
	b, err := OpenLine(chip, pinB, "valve-indicator-b")
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

// Set drives the line high for on.
func (l *GPIOLine) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", l.pin, err)
	}
	return nil
}

// Close releases the line.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing so the LED is not left floating.
func (l *GPIOLine) Close() error {
	var errs []error
	if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.pin, err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", l.pin, err))
	}
	return errors.Join(errs...)
}

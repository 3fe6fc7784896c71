//go:build linux

package command

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RequestLine is a position request input on a Linux GPIO character device.
type RequestLine struct {
	line *gpiocdev.Line
	pin  int
}

// OpenRequestLine requests pin on chip as an input with pull-up, so a
// disconnected request reads high.
func OpenRequestLine(chip string, pin int) (*RequestLine, error) {
	l, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("valve-request"))
	if err != nil {
		return nil, fmt.Errorf("request position input pin %d: %w", pin, err)
	}
	return &RequestLine{line: l, pin: pin}, nil
}

// Value returns the raw line level.
func (r *RequestLine) Value() (int, error) {
	v, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read pin %d: %w", r.pin, err)
	}
	return v, nil
}

// Close releases the line.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing.
func (r *RequestLine) Close() error {
	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", r.pin, err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", r.pin, err))
	}
	return errors.Join(errs...)
}

//go:build !linux

package indicator

import "errors"

// GPIOLine is not available on non-Linux platforms.
type GPIOLine struct{}

// OpenLine returns an error on non-Linux platforms.
func OpenLine(chip string, pin int, consumer string) (*GPIOLine, error) {
	return nil, errors.New("indicator: not supported on this platform (requires Linux)")
}

// OpenLines returns an error on non-Linux platforms.
func OpenLines(chip string, pinA, pinB int) (*GPIOLine, *GPIOLine, error) {
	return nil, nil, errors.New("indicator: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (l *GPIOLine) Set(on bool) error {
	return errors.New("indicator: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *GPIOLine) Close() error {
	return nil
}

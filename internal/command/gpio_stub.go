//go:build !linux

package command

import "errors"

// RequestLine is not available on non-Linux platforms.
type RequestLine struct{}

// OpenRequestLine returns an error on non-Linux platforms.
func OpenRequestLine(chip string, pin int) (*RequestLine, error) {
	return nil, errors.New("command: request line not supported on this platform (requires Linux)")
}

// Value is not implemented on non-Linux platforms.
func (r *RequestLine) Value() (int, error) {
	return 0, errors.New("command: request line not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RequestLine) Close() error {
	return nil
}

package telemetry

import (
	"fmt"
	"io"
)

// SerialEcho duplicates records onto the companion serial link.
// Data lines are prefixed "V:", error lines "E:".
type SerialEcho struct {
	w io.Writer
}

// NewSerialEcho creates a SerialEcho writing to w.
func NewSerialEcho(w io.Writer) *SerialEcho {
	return &SerialEcho{w: w}
}

// Emit writes "V:<line>\n".
func (s *SerialEcho) Emit(r Record) error {
	return s.write("V:" + FormatLine(r) + "\n")
}

// EmitError writes "E:<error line>\n".
func (s *SerialEcho) EmitError(r ErrorRecord) error {
	return s.write("E:" + FormatErrorLine(r) + "\n")
}

func (s *SerialEcho) write(line string) error {
	if _, err := io.WriteString(s.w, line); err != nil {
		return fmt.Errorf("%w: serial echo: %v", ErrUnavailable, err)
	}
	return nil
}

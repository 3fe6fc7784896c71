package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// readPollTimeout bounds each serial Read so the pump notices cancellation.
const readPollTimeout = 200 * time.Millisecond

// OpenSerial opens the companion serial link at baud 8N1 with a short read
// timeout, ready for Pump.
func OpenSerial(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// Pump copies bytes from r into q until ctx is cancelled or r fails
// permanently. It is the queue's only producer.
//
// r is expected to return (0, nil) on a read timeout, as go.bug.st/serial
// ports do.
func Pump(ctx context.Context, r io.Reader, q *Queue, logger *zap.Logger) error {
	buf := make([]byte, 16)
	dropped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if !q.Push(b) {
				dropped++
				if dropped == 1 || dropped%100 == 0 {
					logger.Warn("command queue full, dropping bytes", zap.Int("dropped", dropped))
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read command link: %w", err)
		}
	}
}

// StartPump runs Pump on port in a goroutine. The returned stop function
// cancels the pump, waits for it to return and only then closes port, so a
// clean shutdown is never reported as a link failure. Reads on port must
// time out for stop to return promptly.
func StartPump(port io.ReadCloser, q *Queue, logger *zap.Logger) (stop func() error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Pump(ctx, port, q, logger); err != nil {
			logger.Error("command link stopped", zap.Error(err))
		}
	}()
	return func() error {
		cancel()
		<-done
		return port.Close()
	}
}

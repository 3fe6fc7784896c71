// Package command ingests single-byte valve directives from the companion
// serial link and from a discrete position request input.
//
// Serial bytes are read by a background goroutine and handed to the control
// loop through a bounded single-producer/single-consumer queue. The request
// input is sampled by the control loop itself. The control loop only ever
// performs non-blocking reads.
package command

import (
	"github.com/sweeney/valve-supervisor/internal/logic"
)

// Directive bytes.
const (
	DirectiveTop    = 't'
	DirectiveBottom = 'b'
)

// Source yields inbound command bytes without blocking.
type Source interface {
	// TryReadByte returns the next pending byte, or ok=false if none is pending.
	TryReadByte() (b byte, ok bool)
}

// ParseDirective maps a command byte to a requested position.
// All bytes other than 't' and 'b' are ignored (ok=false).
func ParseDirective(b byte) (logic.Position, bool) {
	switch b {
	case DirectiveTop:
		return logic.Top, true
	case DirectiveBottom:
		return logic.Bottom, true
	}
	return logic.Unknown, false
}

// DefaultQueueSize bounds the number of unread command bytes.
const DefaultQueueSize = 64

// Queue is a bounded SPSC byte queue. Push is called by exactly one
// producer goroutine, TryReadByte by the control loop.
type Queue struct {
	ch chan byte
}

// NewQueue creates a Queue holding at most size bytes.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan byte, size)}
}

// Push enqueues b. Returns false if the queue is full and b was dropped.
func (q *Queue) Push(b byte) bool {
	select {
	case q.ch <- b:
		return true
	default:
		return false
	}
}

// TryReadByte dequeues the next byte without blocking.
func (q *Queue) TryReadByte() (byte, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return 0, false
	}
}

// Len returns the number of queued bytes.
func (q *Queue) Len() int {
	return len(q.ch)
}

package command

import "go.uber.org/zap"

// LineReader reads the level of a digital input.
type LineReader interface {
	Value() (int, error)
}

// LevelRequest is a Source fed by a discrete request input: high asks for
// Top, low for Bottom. A directive is produced on the first successful read
// and again whenever the level changes.
type LevelRequest struct {
	line    LineReader
	logger  *zap.Logger
	last    int
	seen    bool
	failing bool
}

// NewLevelRequest creates a LevelRequest polling line.
func NewLevelRequest(line LineReader, logger *zap.Logger) *LevelRequest {
	return &LevelRequest{line: line, logger: logger}
}

// TryReadByte samples the line once. A read failure yields no directive and
// is logged once per failure streak.
func (r *LevelRequest) TryReadByte() (byte, bool) {
	v, err := r.line.Value()
	if err != nil {
		if !r.failing {
			r.failing = true
			r.logger.Warn("read request line", zap.Error(err))
		}
		return 0, false
	}
	if r.failing {
		r.failing = false
		r.logger.Info("request line readable again")
	}
	if r.seen && v == r.last {
		return 0, false
	}
	r.seen, r.last = true, v
	if v != 0 {
		return DirectiveTop, true
	}
	return DirectiveBottom, true
}

// Merge polls each source in order and returns the first byte found.
type Merge []Source

// TryReadByte implements Source.
func (m Merge) TryReadByte() (byte, bool) {
	for _, s := range m {
		if b, ok := s.TryReadByte(); ok {
			return b, true
		}
	}
	return 0, false
}

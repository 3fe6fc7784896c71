// Package store persists the last commanded valve position across power loss.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweeney/valve-supervisor/internal/logic"
)

// ErrHomeNotStorable is returned when asked to persist Home.
// Home is a transient safety state; recovery must resume the schedule.
var ErrHomeNotStorable = errors.New("store: home position is never persisted")

// PositionStore is a durable one-value store.
type PositionStore interface {
	// Load returns the stored position. ok is false if nothing was stored yet.
	Load() (pos logic.Position, ok bool, err error)

	// Store durably records pos. Only Bottom and Top are accepted.
	Store(pos logic.Position) error
}

// FileStore keeps the position in a small text file, replaced atomically.
type FileStore struct {
	path   string
	cached logic.Position
}

// NewFileStore creates a FileStore at path. The parent directory is created
// on first Store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored position.
func (s *FileStore) Load() (logic.Position, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return logic.Unknown, false, nil
	}
	if err != nil {
		return logic.Unknown, false, fmt.Errorf("read %s: %w", s.path, err)
	}
	pos, err := logic.ParsePosition(strings.TrimSpace(string(data)))
	if err != nil || pos == logic.Home {
		return logic.Unknown, false, fmt.Errorf("corrupt position file %s: %q", s.path, strings.TrimSpace(string(data)))
	}
	s.cached = pos
	return pos, true, nil
}

// Store writes pos unless it already matches the stored value, limiting
// writes to the medium to actual changes.
func (s *FileStore) Store(pos logic.Position) error {
	if pos != logic.Bottom && pos != logic.Top {
		return ErrHomeNotStorable
	}
	if pos == s.cached {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".position-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(pos.String() + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	s.cached = pos
	return nil
}

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/valve-supervisor/internal/logic"
)

func TestFileStoreEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "position"))

	pos, ok, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected no stored value, got %s", pos)
	}
}

func TestFileStoreRoundTripAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "position")

	if err := NewFileStore(path).Store(logic.Top); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// A fresh instance simulates a reboot.
	pos, ok, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok || pos != logic.Top {
		t.Errorf("got (%s, %v), want (top, true)", pos, ok)
	}
}

func TestFileStoreRejectsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position")
	s := NewFileStore(path)

	if err := s.Store(logic.Bottom); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store(logic.Home); !errors.Is(err, ErrHomeNotStorable) {
		t.Errorf("expected ErrHomeNotStorable, got %v", err)
	}

	pos, _, _ := NewFileStore(path).Load()
	if pos != logic.Bottom {
		t.Errorf("home must not overwrite record: got %s", pos)
	}
}

func TestFileStoreSkipsUnchangedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position")
	s := NewFileStore(path)

	if err := s.Store(logic.Top); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Remove the file behind the store's back; an unchanged Store must not
	// touch the medium, so the file stays gone.
	os.Remove(path)
	if err := s.Store(logic.Top); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no write for unchanged value, stat err=%v", err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position")
	os.WriteFile(path, []byte("sideways\n"), 0o644)

	if _, _, err := NewFileStore(path).Load(); err == nil {
		t.Error("expected error for corrupt file")
	}

	os.WriteFile(path, []byte("home\n"), 0o644)
	if _, _, err := NewFileStore(path).Load(); err == nil {
		t.Error("expected error for persisted home")
	}
}

func TestFileStoreUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, nil, 0o644)

	// Parent "directory" is a regular file.
	s := NewFileStore(filepath.Join(blocker, "position"))
	if err := s.Store(logic.Top); err == nil {
		t.Error("expected error when parent is not a directory")
	}
}

func TestFake(t *testing.T) {
	f := NewFake()
	if _, ok, _ := f.Load(); ok {
		t.Error("expected empty fake")
	}
	f.Store(logic.Top)
	if err := f.Store(logic.Home); !errors.Is(err, ErrHomeNotStorable) {
		t.Errorf("expected ErrHomeNotStorable, got %v", err)
	}
	pos, ok, _ := f.Load()
	if !ok || pos != logic.Top {
		t.Errorf("got (%s, %v)", pos, ok)
	}
	if f.Writes != 1 {
		t.Errorf("Writes: got %d, want 1", f.Writes)
	}
}

package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// StateStore persists the serialised session state (cookies and storage)
// at a single path. The contents are opaque: they are written and handed
// back to the driver, never inspected.
//
// Save replaces the file via temp file + rename so a reader never sees a
// half-written blob. Two processes saving at once still race; the last
// rename wins.
type StateStore struct {
	fs   afero.Fs
	path string
}

// NewStateStore creates a store for path on fs.
func NewStateStore(fs afero.Fs, path string) *StateStore {
	return &StateStore{fs: fs, path: path}
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Exists reports whether a state file has been saved.
func (s *StateStore) Exists() bool {
	info, err := s.fs.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the saved state.
func (s *StateStore) Load() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return data, nil
}

// Save atomically replaces the state file with data.
func (s *StateStore) Save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer s.fs.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := s.fs.Chmod(tmpPath, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to chmod temp state file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename state file to %s: %w", s.path, err)
	}
	return nil
}

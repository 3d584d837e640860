package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	stateDirName  = ".prepwise"
	stateFileName = "current_session"
)

// StateFile persists the active-session pointer across invocations. Writes
// are atomic (temp file + rename) and guarded by a file lock so concurrent
// prepwise processes cannot interleave partial writes.
type StateFile struct {
	path string
}

// DefaultStateFile returns the state file under ~/.prepwise, creating the
// directory if needed.
func DefaultStateFile() (*StateFile, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, stateDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &StateFile{path: filepath.Join(dir, stateFileName)}, nil
}

// NewStateFile returns a state file at an explicit path. Used by tests.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load returns the active session id, or "" if no session is active.
// A missing file is not an error.
func (s *StateFile) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read state file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save marks sessionID as the active session.
func (s *StateFile) Save(sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sessionID), 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Clear removes the active-session pointer. Idempotent: clearing when no
// session is active is not an error.
func (s *StateFile) Clear() error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// ClearIf clears the pointer only if it currently equals sessionID. Used on
// session deletion so deleting an inactive session leaves the pointer alone.
func (s *StateFile) ClearIf(sessionID string) error {
	current, err := s.Load()
	if err != nil {
		return err
	}
	if current != sessionID {
		return nil
	}
	return s.Clear()
}

// lock takes an exclusive advisory lock next to the state file and returns
// the unlock function.
func (s *StateFile) lock() (func(), error) {
	fl := flock.New(s.path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock state file: %w", err)
	}
	return func() {
		// Unlock errors leave a stale advisory lock at worst.
		_ = fl.Unlock()
	}, nil
}

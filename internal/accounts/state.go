package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// state is the on-disk shape of the registry. It holds account names only,
// never credential values, so the file is written world-readable like any
// other config file.
type state struct {
	// Active maps service -> currently active account. Services without an
	// entry implicitly use Default.
	Active map[string]string `json:"active"`
	// Accounts maps service -> sorted list of registered account names.
	Accounts map[string][]string `json:"accounts"`
}

func newState() *state {
	return &state{
		Active:   make(map[string]string),
		Accounts: make(map[string][]string),
	}
}

// clone deep-copies the state so mutations can be rolled back when the
// follow-up disk write fails.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.Active {
		c.Active[k] = v
	}
	for k, v := range s.Accounts {
		c.Accounts[k] = append([]string(nil), v...)
	}
	return c
}

// loadState reads the registry file at path. A missing or unparseable file
// yields an empty state: the registry must never block credential access
// over bad metadata. The bad file is left in place until the next
// successful save overwrites it.
func loadState(path string) *state {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cannot read account state file, starting fresh", "path", path, "error", err)
		}
		return newState()
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("corrupt account state file, starting fresh", "path", path, "error", err)
		return newState()
	}
	if s.Active == nil {
		s.Active = make(map[string]string)
	}
	if s.Accounts == nil {
		s.Accounts = make(map[string][]string)
	}
	return &s
}

// saveState writes the registry atomically: marshal, write a temp file in
// the same directory, rename over the target. A file lock serializes
// writers across processes.
func saveState(path string, s *state) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("state file is locked by another process")
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write account state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace account state: %w", err)
	}
	return nil
}

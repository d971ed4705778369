// Package singleton prevents two agent processes from interleaving edits on
// the same project directory.
package singleton

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock represents an acquired per-project lock.
type Lock struct {
	flock *flock.Flock
}

// TryAcquire attempts to take the project lock under <projectRoot>/.agent/.
// It returns the lock and true if acquired, or nil and false when another
// agent already holds it.
func TryAcquire(projectRoot string) (*Lock, bool, error) {
	dir := filepath.Join(projectRoot, ".agent")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("singleton: create %s: %w", dir, err)
	}

	lockPath := filepath.Join(dir, "agent.lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("singleton: try lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Release releases the project lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}

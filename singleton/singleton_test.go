package singleton

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTryAcquireAndRelease(t *testing.T) {
	root := t.TempDir()

	lock, acquired, err := TryAcquire(root)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired || lock == nil {
		t.Fatal("first acquire should succeed")
	}

	if _, err := os.Stat(filepath.Join(root, ".agent", "agent.lock")); err != nil {
		t.Errorf("lock file should exist under .agent/: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("release: %v", err)
	}

	// After release, the lock is acquirable again.
	again, acquired, err := TryAcquire(root)
	if err != nil || !acquired {
		t.Fatalf("reacquire after release failed: acquired=%v err=%v", acquired, err)
	}
	again.Release()
}

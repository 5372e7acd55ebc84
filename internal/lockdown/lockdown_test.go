package lockdown

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTracker(t *testing.T, maxAttempts int, cooldown time.Duration) (*Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".lockdown")
	tr, err := New(path, ModeIP, maxAttempts, cooldown)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr, path
}

func TestNotLockedBeforeThreshold(t *testing.T) {
	tr, _ := newTestTracker(t, 3, time.Minute)
	for i := 0; i < 2; i++ {
		if err := tr.RecordFailure("1.2.3.4"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected no lockdown before reaching max_attempts")
	}
}

func TestLockedAfterThreshold(t *testing.T) {
	tr, path := newTestTracker(t, 2, time.Minute)
	for i := 0; i < 2; i++ {
		if err := tr.RecordFailure("1.2.3.4"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if !tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected lockdown after reaching max_attempts")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sidecar file to exist: %v", err)
	}
}

func TestLockdownExpiresAfterCooldown(t *testing.T) {
	tr, _ := newTestTracker(t, 1, time.Millisecond)
	if err := tr.RecordFailure("1.2.3.4"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if !tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected immediate lockdown")
	}
	time.Sleep(5 * time.Millisecond)
	if tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected lockdown to expire after cooldown elapses")
	}
}

func TestDisabledModeNeverLocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lockdown")
	tr, err := New(path, ModeNone, 1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.RecordFailure("1.2.3.4"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected mode=none to never lock")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no sidecar file to be written for mode=none")
	}
}

func TestZeroMaxAttemptsNeverLocks(t *testing.T) {
	tr, _ := newTestTracker(t, 0, time.Minute)
	if err := tr.RecordFailure("1.2.3.4"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if tr.IsLockedDown("1.2.3.4") {
		t.Fatalf("expected max_attempts<=0 to never lock")
	}
}

func TestReloadsPersistedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lockdown")
	tr, err := New(path, ModeIP, 1, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.RecordFailure("9.9.9.9"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	reloaded, err := New(path, ModeIP, 1, time.Hour)
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if !reloaded.IsLockedDown("9.9.9.9") {
		t.Fatalf("expected lockdown state to survive a reload from disk")
	}
}

package lockdown

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Mode selects what identifies a lockdown subject.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeIP    Mode = "ip"
	ModeToken Mode = "token"
)

// ParseMode converts a config string to a Mode, defaulting to ModeNone for
// anything unrecognized rather than failing startup over a typo'd value.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeIP, ModeToken:
		return Mode(s)
	default:
		return ModeNone
	}
}

// entry is one subject's lockdown state. Attempts is cumulative and never
// resets; Time is the unix-millisecond expiry of the current lockdown
// window.
type entry struct {
	Time     int64 `json:"time"`
	Attempts int   `json:"attempts"`
}

// Tracker guards a subject -> entry map behind its own mutex and rewrites
// the sidecar file after every change, per the concurrency model's
// requirement that lockdown disk rewrites happen under the lockdown lock,
// not the engine's mutation mutex.
type Tracker struct {
	mu          sync.Mutex
	path        string
	mode        Mode
	maxAttempts int
	cooldown    time.Duration
	entries     map[string]*entry
}

// New constructs a Tracker, loading any existing sidecar file at path. A
// missing file is not an error - a fresh install has none yet.
func New(path string, mode Mode, maxAttempts int, cooldown time.Duration) (*Tracker, error) {
	t := &Tracker{
		path:        path,
		mode:        mode,
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		entries:     make(map[string]*entry),
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "lockdown: read sidecar file")
	}
	if len(data) == 0 {
		return nil
	}
	var entries map[string]*entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "lockdown: parse sidecar file")
	}
	t.entries = entries
	return nil
}

// Enabled reports whether lockdown tracking applies at all - false for
// mode "none" or a non-positive attempt threshold, in which case
// IsLockedDown always returns false and RecordFailure is a no-op.
func (t *Tracker) Enabled() bool {
	return t.mode != ModeNone && t.maxAttempts > 0
}

// Mode returns the tracker's configured subject mode.
func (t *Tracker) Mode() Mode {
	return t.mode
}

// IsLockedDown reports whether subject is currently locked out: it has
// reached the attempt threshold and its lockdown window hasn't expired.
func (t *Tracker) IsLockedDown(subject string) bool {
	if !t.Enabled() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[subject]
	if !ok {
		return false
	}
	return e.Attempts >= t.maxAttempts && time.Now().UnixMilli() <= e.Time
}

// RecordFailure increments subject's attempt counter and extends its
// lockdown window to now+cooldown, then persists the change. Callers
// should only call this for a genuine authentication failure - a rejection
// because the subject was already locked down must not call this again,
// per the "no increment on top of existing" rule.
func (t *Tracker) RecordFailure(subject string) error {
	if !t.Enabled() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[subject]
	if !ok {
		e = &entry{}
		t.entries[subject] = e
	}
	e.Attempts++
	e.Time = time.Now().Add(t.cooldown).UnixMilli()
	return t.persistLocked()
}

// persistLocked rewrites the sidecar file, removing it entirely once no
// subject remains in the map. Must be called with mu held.
func (t *Tracker) persistLocked() error {
	if len(t.entries) == 0 {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "lockdown: remove sidecar file")
		}
		return nil
	}

	data, err := json.MarshalIndent(t.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "lockdown: marshal sidecar file")
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "lockdown: write sidecar file")
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return errors.Wrap(err, "lockdown: rename sidecar file")
	}
	return nil
}

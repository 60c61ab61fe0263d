// Package status maintains a small JSON heartbeat file describing what the
// pipeline is doing right now. Supervisors and humans read it; the process
// never reads it back.
package status

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Snapshot is the file's content.
type Snapshot struct {
	PID       int       `json:"pid"`
	RunID     string    `json:"run_id,omitempty"`
	File      string    `json:"file,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Completed int       `json:"completed"`
	Uploaded  int       `json:"uploaded"`
	Archived  int       `json:"archived"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker keeps the current snapshot and rewrites the file on every change.
// A nil *Tracker or one with an empty path only keeps state in memory.
type Tracker struct {
	mu   sync.Mutex
	path string
	snap Snapshot
	now  func() time.Time
}

// NewTracker returns a tracker writing to path ("" disables the file).
func NewTracker(path string, pid int) *Tracker {
	return &Tracker{path: path, snap: Snapshot{PID: pid}, now: time.Now}
}

// BeginRun starts a new run for file.
func (t *Tracker) BeginRun(runID, file string) error {
	return t.update(func(s *Snapshot) {
		s.RunID = runID
		s.File = file
		s.Stage = ""
		s.Attempt = 0
	})
}

// Stage records the stage and attempt in progress.
func (t *Tracker) Stage(stage string, attempt int) error {
	return t.update(func(s *Snapshot) {
		s.Stage = stage
		s.Attempt = attempt
	})
}

// Succeeded closes the current run. archived selects which counter grows.
func (t *Tracker) Succeeded(archived bool) error {
	return t.update(func(s *Snapshot) {
		s.Completed++
		if archived {
			s.Archived++
		} else {
			s.Uploaded++
		}
		s.Stage = "done"
		s.Attempt = 0
		s.LastError = ""
	})
}

// Failed records the fatal error that ended the current run.
func (t *Tracker) Failed(err error) error {
	return t.update(func(s *Snapshot) {
		s.Stage = "failed"
		if err != nil {
			s.LastError = err.Error()
		}
	})
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Tracker) update(fn func(*Snapshot)) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.snap)
	t.snap.UpdatedAt = t.now().UTC()
	if t.path == "" {
		return nil
	}
	return write(t.path, t.snap)
}

func write(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write status file %s: %w", path, err)
	}
	return nil
}

package status

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSnapshot(t *testing.T, path string) Snapshot {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var s Snapshot
	require.NoError(t, json.Unmarshal(b, &s))
	return s
}

func TestTracker_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	tr := NewTracker(path, 4242)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	require.NoError(t, tr.BeginRun("run-1", "/in/clip1.mp4"))
	require.NoError(t, tr.Stage("convert", 2))

	s := readSnapshot(t, path)
	assert.Equal(t, 4242, s.PID)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "/in/clip1.mp4", s.File)
	assert.Equal(t, "convert", s.Stage)
	assert.Equal(t, 2, s.Attempt)
	assert.True(t, fixed.Equal(s.UpdatedAt))

	require.NoError(t, tr.Succeeded(true))
	require.NoError(t, tr.BeginRun("run-2", "/in/clip2.mp4"))
	require.NoError(t, tr.Succeeded(false))

	s = readSnapshot(t, path)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Archived)
	assert.Equal(t, 1, s.Uploaded)
	assert.Equal(t, "done", s.Stage)
}

func TestTracker_Failed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	tr := NewTracker(path, 1)
	require.NoError(t, tr.BeginRun("run-1", "/in/x.mp4"))
	require.NoError(t, tr.Failed(errors.New("checksum never matched")))

	s := readSnapshot(t, path)
	assert.Equal(t, "failed", s.Stage)
	assert.Equal(t, "checksum never matched", s.LastError)
}

func TestTracker_NoPath(t *testing.T) {
	tr := NewTracker("", 1)
	require.NoError(t, tr.BeginRun("run-1", "f"))
	assert.Equal(t, "run-1", tr.Snapshot().RunID)
}

func TestTracker_Nil(t *testing.T) {
	var tr *Tracker
	assert.NoError(t, tr.Stage("download", 1))
	assert.Equal(t, Snapshot{}, tr.Snapshot())
}

func TestTracker_UnwritableDir(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "missing", "status.json"), 1)
	assert.Error(t, tr.BeginRun("run-1", "f"))
}

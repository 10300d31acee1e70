package dedupe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "notified.json"), 12*time.Hour)
	require.NoError(t, err)
	return s
}

func TestObserved_Debounce(t *testing.T) {
	s := tempStore(t)

	assert.False(t, s.Observed("g1", "d1"), "first sighting must not act")
	assert.True(t, s.Observed("g1", "d1"), "second sighting acts")
	assert.True(t, s.Observed("g1", "d1"))

	// Independent per drive and per game.
	assert.False(t, s.Observed("g1", "d2"))
	assert.False(t, s.Observed("g2", "d1"))
}

func TestResetSeen(t *testing.T) {
	s := tempStore(t)
	s.Observed("g1", "d1")
	s.ResetSeen()
	assert.False(t, s.Observed("g1", "d1"))
}

func TestMarkNotified_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified.json")

	s, err := Open(path, 12*time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.MarkNotified("g1", "d1"))
	require.NoError(t, s.MarkNotified("g1", "d2"))
	assert.True(t, s.HasBeenNotified("g1", "d1"))
	assert.False(t, s.HasBeenNotified("g1", "d3"))

	// Simulate a restart inside the freshness window.
	reopened, err := Open(path, 12*time.Hour)
	require.NoError(t, err)
	assert.True(t, reopened.HasBeenNotified("g1", "d1"))
	assert.True(t, reopened.HasBeenNotified("g1", "d2"))
	assert.False(t, reopened.HasBeenNotified("g2", "d1"))
}

func TestOpen_StaleFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified.json")
	data, err := json.Marshal(map[string][]string{"g1": {"d1"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// Age the file past the freshness window.
	old := time.Now().Add(-13 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	s, err := Open(path, 12*time.Hour)
	require.NoError(t, err)
	assert.False(t, s.HasBeenNotified("g1", "d1"))

	// The reset is written back out.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestOpen_FreshFileLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notified.json")
	data, err := json.Marshal(map[string][]string{"g1": {"d1"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	recent := time.Now().Add(-11 * time.Hour)
	require.NoError(t, os.Chtimes(path, recent, recent))

	s, err := Open(path, 12*time.Hour)
	require.NoError(t, err)
	assert.True(t, s.HasBeenNotified("g1", "d1"))
}

func TestMarkNotified_KeepsMemoryOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "notified.json"), 12*time.Hour)
	require.NoError(t, err)

	// Force the next write to fail by replacing the target with a directory.
	require.NoError(t, os.Remove(s.path))
	require.NoError(t, os.Mkdir(s.path, 0o755))

	err = s.MarkNotified("g1", "d1")
	assert.Error(t, err)
	assert.True(t, s.HasBeenNotified("g1", "d1"), "in-memory record must survive a failed persist")
}

package stores

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnapshotWatcher_SignalsOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SnapshotFile)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	sw, err := NewSnapshotWatcher(path)
	require.NoError(t, err)
	defer func() { _ = sw.Close() }()

	// Atomic rewrite, same pattern SnapshotStore.Save uses.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"searchQuery":"x"}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-sw.Events():
	case <-time.After(3 * time.Second):
		t.Fatal("no event after snapshot rewrite")
	}
}

func TestSnapshotWatcher_EmitAfterCloseIsSafe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SnapshotFile)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	sw, err := NewSnapshotWatcher(path)
	require.NoError(t, err)
	require.NoError(t, sw.Close())

	// A debounce timer that fired before Close could stop it delivers
	// after the channel is closed. Must drop the event, not panic.
	sw.emit()
}

func TestSnapshotWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SnapshotFile)

	sw, err := NewSnapshotWatcher(path)
	require.NoError(t, err)
	defer func() { _ = sw.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte("{}"), 0o600))

	select {
	case <-sw.Events():
		t.Fatal("unexpected event for unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}

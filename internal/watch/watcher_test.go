package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFileWatcherTriggersOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.csv")
	start := time.Now().Add(-time.Hour)
	touch(t, path, "a", start)

	var calls atomic.Int32
	w := New("dataset", []string{path}, 50*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	assert.True(t, w.IsRunning())

	touch(t, path, "b", start.Add(time.Minute))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 20*time.Millisecond)

	// a second event without a newer mtime is ignored
	touch(t, path, "b", start.Add(time.Minute))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFileWatcherLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	touch(t, path, "x", time.Now())

	w := New("tls", []string{path, ""}, 0, func() {}, nil)
	assert.Equal(t, []string{path}, w.Files())

	require.NoError(t, w.Start())
	err := w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop())
}

func TestFileWatcherNeedsFiles(t *testing.T) {
	w := New("empty", []string{""}, time.Second, func() {}, nil)
	err := w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files to watch")
}

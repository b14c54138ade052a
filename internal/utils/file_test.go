package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(file, []byte("python, sql"), 0o600))

	info, err := CheckInputFile(file, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size())

	_, err = CheckInputFile(file, 11)
	assert.NoError(t, err)

	_, err = CheckInputFile(file, 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = CheckInputFile(filepath.Join(dir, "missing.txt"), 0)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = CheckInputFile(dir, 0)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = CheckInputFile("", 0)
	assert.ErrorContains(t, err, "cannot be empty")
}

func TestEnsureParentDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, EnsureParentDir(out))

	info, err := os.Stat(filepath.Dir(out))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureParentDir("run.json"))
	assert.NoError(t, EnsureParentDir(""))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "5.0 MB", FormatFileSize(5*1024*1024))
}

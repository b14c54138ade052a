package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrTooLarge is wrapped by CheckInputFile when a file exceeds the limit.
var ErrTooLarge = fmt.Errorf("file too large")

// CheckInputFile stats path and checks that it is a regular file that can be
// opened and is at most maxSize bytes. maxSize <= 0 skips the size check.
func CheckInputFile(path string, maxSize int64) (fs.FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	case err != nil:
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%s is not a regular file", path)
	case maxSize > 0 && info.Size() > maxSize:
		return nil, fmt.Errorf("%s is %s, limit %s: %w",
			path, FormatFileSize(info.Size()), FormatFileSize(maxSize), ErrTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	_ = f.Close()
	return info, nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if path == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

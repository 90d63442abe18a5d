package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and any missing parents with mode 0755. An already
// existing directory is fine.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile creates the parent directory of path so the file itself
// can be created without a missing-directory error.
func EnsureDirForFile(path string) error {
	return EnsureDir(filepath.Dir(path))
}

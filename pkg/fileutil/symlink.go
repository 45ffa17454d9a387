package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// IsSymlink checks if a path is a symlink.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// ResolveSymlink resolves a symlink to its final target.
// If the path is not a symlink, returns the path itself.
// Follows the entire chain of symlinks to the final destination.
func ResolveSymlink(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlink: %w", err)
	}
	return resolved, nil
}

// StatPath returns file info for path. When follow is false a symlink is
// described by the link itself (Lstat); otherwise by its final target.
func StatPath(path string, follow bool) (os.FileInfo, error) {
	if follow {
		return os.Stat(path)
	}
	return os.Lstat(path)
}

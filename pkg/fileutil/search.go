package fileutil

import (
	"os"
	"path/filepath"
)

// SearchPathsOptional looks for a file in multiple locations.
// Returns the first path that exists and is not a directory, or an empty
// string if none does. Use it for files whose absence is not an error.
func SearchPathsOptional(paths []string) string {
	for _, path := range paths {
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// ConfigPaths returns candidate config file paths in dir, one per extension,
// in the order the extensions are given.
//
// Example:
//
//	ConfigPaths(".", ".pterodactyl-upload", ".json", ".yaml")
//	  -> ["./.pterodactyl-upload.json", "./.pterodactyl-upload.yaml"]
func ConfigPaths(dir, base string, exts ...string) []string {
	paths := make([]string, 0, len(exts))
	for _, ext := range exts {
		paths = append(paths, filepath.Join(dir, base+ext))
	}
	return paths
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

package deployment

import (
	"path"
	"path/filepath"
	"strings"
)

// archiveSuffixes are the extensions the panel can decompress. Matching is
// done on the whole suffix so ".tar.gz" is not mistaken for ".gz".
var archiveSuffixes = []string{".zip", ".tar", ".tar.gz", ".tgz", ".rar"}

// IsDirTarget reports whether target names a remote directory.
func IsDirTarget(target string) bool {
	return target == "" || strings.HasSuffix(target, "/")
}

// TargetPath computes the remote path for localPath. A directory target
// receives the local file's base name, anything else is used verbatim.
func TargetPath(target, localPath string) string {
	if !IsDirTarget(target) {
		return target
	}
	base := filepath.Base(localPath)
	if target == "" {
		return "/" + base
	}
	return path.Join(target, base)
}

// IsArchive reports whether name has an archive extension, ignoring case.
func IsArchive(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

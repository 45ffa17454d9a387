// Package resolve expands declared sources into concrete local files.
//
// A source is either a literal path or a glob pattern (doublestar syntax, so
// "**" matches across directories). Literal paths must exist and must not be
// directories. Patterns may match nothing, which is not an error.
package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pteroupload/pkg/fileutil"

	"github.com/bmatcuk/doublestar/v4"
)

const globMeta = "*?[{"

// Resolver expands source patterns under a fixed symlink policy.
type Resolver struct {
	FollowSymlinks bool
}

// New creates a resolver.
func New(followSymlinks bool) *Resolver {
	return &Resolver{FollowSymlinks: followSymlinks}
}

// Expand resolves pattern into a sorted, de-duplicated list of regular files.
func (r *Resolver) Expand(pattern string) ([]string, error) {
	return Expand(pattern, r.FollowSymlinks)
}

// IsPattern reports whether s contains glob metacharacters.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, globMeta)
}

// Expand resolves pattern into a sorted, de-duplicated list of regular files.
//
// Literal paths fail with SourceNotFoundError when missing and with
// InvalidSourceError when they are directories (or symlinks while following
// is disabled). Patterns silently skip anything that is not a regular file
// and return an empty list when nothing matches.
func Expand(pattern string, followSymlinks bool) ([]string, error) {
	if !IsPattern(pattern) {
		if err := checkLiteral(pattern, followSymlinks); err != nil {
			return nil, err
		}
		return []string{pattern}, nil
	}

	var opts []doublestar.GlobOption
	if !followSymlinks {
		opts = append(opts, doublestar.WithNoFollow())
	}

	matches, err := doublestar.FilepathGlob(pattern, opts...)
	if err != nil {
		if errors.Is(err, doublestar.ErrBadPattern) {
			return nil, &InvalidSourceError{Path: pattern, Reason: "malformed glob pattern"}
		}
		return nil, err
	}

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.Clean(filepath.FromSlash(base))

	seen := make(map[string]bool, len(matches))
	files := make([]string, 0, len(matches))
	for _, match := range matches {
		clean := filepath.Clean(match)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		if !followSymlinks && underSymlink(base, clean) {
			continue
		}
		if isRegular(clean, followSymlinks) {
			files = append(files, clean)
		}
	}

	sort.Strings(files)
	return files, nil
}

func checkLiteral(path string, followSymlinks bool) error {
	if followSymlinks && fileutil.IsSymlink(path) {
		if _, err := fileutil.ResolveSymlink(path); err != nil {
			return &InvalidSourceError{Path: path, Reason: "is a broken symbolic link"}
		}
	}

	info, err := fileutil.StatPath(path, followSymlinks)
	if err != nil {
		if os.IsNotExist(err) {
			return &SourceNotFoundError{Path: path}
		}
		return &InvalidSourceError{Path: path, Reason: err.Error()}
	}

	switch {
	case info.IsDir():
		return &InvalidSourceError{Path: path, Reason: "must be a file, not a directory"}
	case info.Mode()&os.ModeSymlink != 0:
		return &InvalidSourceError{Path: path, Reason: "is a symbolic link and follow-symbolic-links is disabled"}
	case !info.Mode().IsRegular():
		return &InvalidSourceError{Path: path, Reason: "must be a regular file"}
	}
	return nil
}

func isRegular(path string, followSymlinks bool) bool {
	info, err := fileutil.StatPath(path, followSymlinks)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// underSymlink reports whether any directory between base and path is a
// symlink. Components of base itself were written by the caller and are
// trusted.
func underSymlink(base, path string) bool {
	rel, err := filepath.Rel(base, filepath.Dir(path))
	if err != nil || rel == "." {
		return false
	}
	dir := base
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		if fileutil.IsSymlink(dir) {
			return true
		}
	}
	return false
}

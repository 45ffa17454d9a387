package security

import (
	"fmt"
	"os"
)

const (
	// PermDBFile is for the run history database.
	// rw-r----- (0640): owner can read/write, group can read, others have no access.
	PermDBFile os.FileMode = 0640

	// PermSecretFile is for files holding credentials, such as .env.
	// rw------- (0600): only owner can read/write, no one else has access.
	PermSecretFile os.FileMode = 0600
)

// SecretFileHint returns the command that gives path the permissions
// expected of a credentials file.
func SecretFileHint(path string) string {
	return fmt.Sprintf("chmod %04o %s", PermSecretFile, path)
}

// IsWorldReadable checks if a file is readable by others.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable checks if a file is writable by others.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}

// ValidateSecurePermissions validates that a file holding credentials is
// neither world-readable nor world-writable.
func ValidateSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldReadable(perm) {
		return fmt.Errorf("file %s is world-readable (%04o), which is insecure for credentials", path, perm)
	}

	if IsWorldWritable(perm) {
		return fmt.Errorf("file %s is world-writable (%04o), which is a serious security risk", path, perm)
	}

	return nil
}

// RestrictPermissions narrows an existing file's mode to at most perm.
// Bits already cleared stay cleared.
func RestrictPermissions(path string, perm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	current := info.Mode().Perm()
	if current&^perm == 0 {
		return nil
	}

	if err := os.Chmod(path, current&perm); err != nil {
		return fmt.Errorf("failed to fix file permissions: %w", err)
	}
	return nil
}

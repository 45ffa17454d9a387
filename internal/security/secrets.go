package security

import (
	"strings"
)

// minRedactLength skips values too short to redact without mangling
// unrelated text.
const minRedactLength = 4

// Redact replaces every occurrence of each secret in s with "***".
// Empty and very short secrets are ignored.
func Redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if len(secret) < minRedactLength {
			continue
		}
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}

// MaskSecret shows only the last four characters of a credential, for log
// lines that need to identify which key was used.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// IsWeakSecret performs a quick check if a credential is obviously not a
// real panel key. This can be used for warning messages without failing.
func IsWeakSecret(secret string) bool {
	// Too short
	if len(secret) < 16 {
		return true
	}

	// All same character
	if len(strings.Trim(secret, string(secret[0]))) == 0 {
		return true
	}

	lower := strings.ToLower(secret)
	for _, placeholder := range []string{"changeme", "replace", "your-api-key", "example"} {
		if strings.Contains(lower, placeholder) {
			return true
		}
	}

	return false
}

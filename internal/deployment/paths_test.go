package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetPath(t *testing.T) {
	tests := []struct {
		target string
		local  string
		want   string
	}{
		{"/home/container/", "build/app.zip", "/home/container/app.zip"},
		{"/home/container/app.zip", "build/other.zip", "/home/container/app.zip"},
		{"/plugins/", "dist/nested/Plugin.jar", "/plugins/Plugin.jar"},
		{"/", "a.txt", "/a.txt"},
		{"", "out/a.txt", "/a.txt"},
		{"config.yml", "x/settings.yml", "config.yml"},
	}

	for _, tc := range tests {
		t.Run(tc.target+"|"+tc.local, func(t *testing.T) {
			assert.Equal(t, tc.want, TargetPath(tc.target, tc.local))
		})
	}
}

func TestIsArchive(t *testing.T) {
	tests := map[string]bool{
		"/a.zip":        true,
		"/A.ZIP":        true,
		"/world.tar":    true,
		"/world.tar.gz": true,
		"/world.TGZ":    true,
		"/pack.rar":     true,
		"/notes.txt":    false,
		"/data.gz":      false,
		"/zip":          false,
		"/archive.zip/": false,
	}

	for name, want := range tests {
		assert.Equal(t, want, IsArchive(name), name)
	}
}

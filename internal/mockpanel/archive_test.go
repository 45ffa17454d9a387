package mockpanel

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractArchive_TarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "release.TAR.GZ")
	writeTarGz(t, archive, map[string]string{"config/server.properties": "motd=hi"})

	if err := extractArchive(archive, dir); err != nil {
		t.Fatalf("extractArchive failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config", "server.properties"))
	if err != nil {
		t.Fatalf("Expected extracted file: %v", err)
	}
	if string(data) != "motd=hi" {
		t.Errorf("Unexpected content %q", data)
	}
}

func TestExtractArchive_ZipSlip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("../../outside.txt")
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	if err := extractArchive(archive, dir); err == nil {
		t.Error("Expected entry escaping the directory to be rejected")
	}
}

func TestExtractArchive_Unsupported(t *testing.T) {
	err := extractArchive("/tmp/pack.rar", t.TempDir())
	if !errors.Is(err, errUnsupportedArchive) {
		t.Errorf("Expected errUnsupportedArchive, got %v", err)
	}
}

func TestVerifyBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		key    string
		want   bool
	}{
		{"valid", "Bearer k1", "k1", true},
		{"wrong key", "Bearer k2", "k1", false},
		{"missing prefix", "k1", "k1", false},
		{"empty configured key", "Bearer ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyBearer(tt.header, tt.key); got != tt.want {
				t.Errorf("VerifyBearer(%q, %q) = %v, want %v", tt.header, tt.key, got, tt.want)
			}
		})
	}
}

package mockpanel

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testAPIKey = "ptlc_test_key"

func setupTestPanel(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Root == "" {
		opts.Root = t.TempDir()
	}
	if opts.APIKey == "" {
		opts.APIKey = testAPIKey
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(opts)
}

func doRequest(t *testing.T, s *Server, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHandleWrite_StoresFile(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc123/files/write?file=%2Fplugins%2Fa.jar", []byte("jar-bytes"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", rr.Code, rr.Body.String())
	}

	data, err := os.ReadFile(s.FilePath("abc123", "/plugins/a.jar"))
	if err != nil {
		t.Fatalf("Expected file to be written: %v", err)
	}
	if string(data) != "jar-bytes" {
		t.Errorf("Expected content 'jar-bytes', got %q", data)
	}

	calls := s.Calls()
	if len(calls) != 1 || calls[0].Op != "write" || calls[0].Path != "/plugins/a.jar" {
		t.Errorf("Unexpected calls: %+v", calls)
	}
}

func TestHandleWrite_MissingFileParam(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc123/files/write", []byte("x"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rr.Code)
	}
}

func TestHandleWrite_InjectedFailures(t *testing.T) {
	s := setupTestPanel(t, Options{FailWrites: 2})

	for i := 0; i < 2; i++ {
		rr := doRequest(t, s, "/api/client/servers/abc/files/write?file=a.txt", []byte("x"))
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("Attempt %d: expected status 500, got %d", i+1, rr.Code)
		}
	}

	rr := doRequest(t, s, "/api/client/servers/abc/files/write?file=a.txt", []byte("x"))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected third write to succeed, got %d", rr.Code)
	}
}

func TestHandleWrite_PathTraversalStaysInRoot(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc/files/write?file=..%2F..%2Fescape.txt", []byte("x"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	if _, err := os.Stat(filepath.Join(s.opts.Root, "abc", "escape.txt")); err != nil {
		t.Errorf("Expected file to be clamped under the server root: %v", err)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	s := setupTestPanel(t, Options{})

	req := httptest.NewRequest("POST", "/api/client/servers/abc/power", strings.NewReader(`{"signal":"restart"}`))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if len(s.Calls()) != 0 {
		t.Errorf("Expected unauthenticated request not to be recorded")
	}
}

func TestHandleDecompress_Zip(t *testing.T) {
	s := setupTestPanel(t, Options{})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("world/level.dat")
	_, _ = w.Write([]byte("level"))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to build zip: %v", err)
	}

	if rr := doRequest(t, s, "/api/client/servers/abc/files/write?file=%2Fbundle.zip", buf.Bytes()); rr.Code != http.StatusNoContent {
		t.Fatalf("Write failed: %d", rr.Code)
	}

	rr := doRequest(t, s, "/api/client/servers/abc/files/decompress", []byte(`{"root":"/","file":"/bundle.zip"}`))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d: %s", rr.Code, rr.Body.String())
	}

	data, err := os.ReadFile(s.FilePath("abc", "/world/level.dat"))
	if err != nil {
		t.Fatalf("Expected extracted file: %v", err)
	}
	if string(data) != "level" {
		t.Errorf("Expected 'level', got %q", data)
	}
}

func TestHandleDecompress_ExtractsIntoRoot(t *testing.T) {
	s := setupTestPanel(t, Options{})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("level.dat")
	_, _ = w.Write([]byte("level"))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to build zip: %v", err)
	}

	if rr := doRequest(t, s, "/api/client/servers/abc/files/write?file=%2Fuploads%2Fbundle.zip", buf.Bytes()); rr.Code != http.StatusNoContent {
		t.Fatalf("Write failed: %d", rr.Code)
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"slash root", `{"root":"/","file":"/uploads/bundle.zip"}`, "/level.dat"},
		{"nested root", `{"root":"/uploads","file":"bundle.zip"}`, "/uploads/level.dat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, "/api/client/servers/abc/files/decompress", []byte(tt.body))
			if rr.Code != http.StatusNoContent {
				t.Fatalf("Expected status 204, got %d: %s", rr.Code, rr.Body.String())
			}
			if _, err := os.Stat(s.FilePath("abc", tt.want)); err != nil {
				t.Errorf("Expected %s to be extracted: %v", tt.want, err)
			}
		})
	}
}

func TestHandleDecompress_MissingArchive(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc/files/decompress", []byte(`{"root":"/","file":"/nope.zip"}`))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestHandleDecompress_UnsupportedFormat(t *testing.T) {
	s := setupTestPanel(t, Options{})

	doRequest(t, s, "/api/client/servers/abc/files/write?file=%2Fpack.rar", []byte("rar"))
	rr := doRequest(t, s, "/api/client/servers/abc/files/decompress", []byte(`{"root":"/","file":"/pack.rar"}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestHandleDelete_RemovesFiles(t *testing.T) {
	s := setupTestPanel(t, Options{})

	doRequest(t, s, "/api/client/servers/abc/files/write?file=%2Fa.zip", []byte("x"))
	rr := doRequest(t, s, "/api/client/servers/abc/files/delete", []byte(`{"root":"/","files":["/a.zip"]}`))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	if _, err := os.Stat(s.FilePath("abc", "/a.zip")); !os.IsNotExist(err) {
		t.Errorf("Expected file to be deleted, stat err: %v", err)
	}
}

func TestHandleDelete_EmptyList(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc/files/delete", []byte(`{"root":"/","files":[]}`))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rr.Code)
	}
}

func TestHandlePower(t *testing.T) {
	tests := []struct {
		signal string
		want   int
	}{
		{"restart", http.StatusNoContent},
		{"kill", http.StatusNoContent},
		{"reboot", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.signal, func(t *testing.T) {
			s := setupTestPanel(t, Options{})
			body, _ := json.Marshal(map[string]string{"signal": tt.signal})

			rr := doRequest(t, s, "/api/client/servers/abc/power", body)
			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestHandlePower_InvalidJSON(t *testing.T) {
	s := setupTestPanel(t, Options{})

	rr := doRequest(t, s, "/api/client/servers/abc/power", []byte("{"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	var envelope struct {
		Errors []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil || len(envelope.Errors) != 1 {
		t.Fatalf("Expected error envelope, got %s", rr.Body.String())
	}
	if envelope.Errors[0].Code != "BadRequestHttpException" {
		t.Errorf("Unexpected error code %q", envelope.Errors[0].Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := setupTestPanel(t, Options{RateLimit: 2})

	for i := 0; i < 2; i++ {
		if rr := doRequest(t, s, "/api/client/servers/abc/power", []byte(`{"signal":"restart"}`)); rr.Code != http.StatusNoContent {
			t.Fatalf("Request %d: expected 204, got %d", i+1, rr.Code)
		}
	}

	rr := doRequest(t, s, "/api/client/servers/abc/power", []byte(`{"signal":"restart"}`))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", rr.Code)
	}
}

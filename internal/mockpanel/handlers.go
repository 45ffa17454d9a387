package mockpanel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxJSONBody = 1 << 20

var validSignals = map[string]bool{
	"start":   true,
	"stop":    true,
	"restart": true,
	"kill":    true,
}

type decompressRequest struct {
	Root string `json:"root"`
	File string `json:"file"`
}

type deleteRequest struct {
	Root  string   `json:"root"`
	Files []string `json:"files"`
}

type powerRequest struct {
	Signal string `json:"signal"`
}

// HandleWrite stores the raw request body at the "file" query parameter.
func (s *Server) HandleWrite(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server")
	remote := r.URL.Query().Get("file")
	call := Call{Op: "write", ServerID: serverID, Path: remote}

	if remote == "" {
		s.fail(w, call, http.StatusUnprocessableEntity, "ValidationException", "The file field is required.")
		return
	}

	if s.takeWriteFailure() {
		s.fail(w, call, http.StatusInternalServerError, "HttpException", "Injected write failure.")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		s.fail(w, call, http.StatusRequestEntityTooLarge, "FileSizeTooLargeException", err.Error())
		return
	}

	dest := s.FilePath(serverID, remote)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		s.fail(w, call, http.StatusInternalServerError, "HttpException", err.Error())
		return
	}
	if err := os.WriteFile(dest, body, 0644); err != nil {
		s.fail(w, call, http.StatusInternalServerError, "HttpException", err.Error())
		return
	}

	s.opts.Logger.Info("File written", "server", serverID, "file", remote, "bytes", len(body))
	s.succeed(w, call)
}

// HandleDecompress extracts an archive into the request root, as the panel
// daemon does. The archive path is the root joined with file.
func (s *Server) HandleDecompress(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server")

	var req decompressRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, Call{Op: "decompress", ServerID: serverID}, http.StatusBadRequest, "BadRequestHttpException", err.Error())
		return
	}
	remote := path.Join(rootOrSlash(req.Root), req.File)
	call := Call{Op: "decompress", ServerID: serverID, Path: remote}

	archive := s.FilePath(serverID, remote)
	if _, err := os.Stat(archive); err != nil {
		s.fail(w, call, http.StatusNotFound, "NotFoundHttpException", "The requested resource was not found on this server.")
		return
	}

	if err := extractArchive(archive, s.FilePath(serverID, rootOrSlash(req.Root))); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errUnsupportedArchive) {
			status = http.StatusBadRequest
		}
		s.fail(w, call, status, "DaemonConnectionException", err.Error())
		return
	}

	s.succeed(w, call)
}

// HandleDelete removes the listed files. Missing files are ignored.
func (s *Server) HandleDelete(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server")

	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, Call{Op: "delete", ServerID: serverID}, http.StatusBadRequest, "BadRequestHttpException", err.Error())
		return
	}
	if len(req.Files) == 0 {
		s.fail(w, Call{Op: "delete", ServerID: serverID}, http.StatusUnprocessableEntity, "ValidationException", "The files field is required.")
		return
	}

	for _, f := range req.Files {
		remote := path.Join(rootOrSlash(req.Root), f)
		call := Call{Op: "delete", ServerID: serverID, Path: remote}
		if err := os.RemoveAll(s.FilePath(serverID, remote)); err != nil {
			s.fail(w, call, http.StatusInternalServerError, "HttpException", err.Error())
			return
		}
		s.record(Call{Op: "delete", ServerID: serverID, Path: remote, Status: http.StatusNoContent})
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlePower records a power signal.
func (s *Server) HandlePower(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "server")

	var req powerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, Call{Op: "power", ServerID: serverID}, http.StatusBadRequest, "BadRequestHttpException", err.Error())
		return
	}
	call := Call{Op: "power", ServerID: serverID, Path: req.Signal}

	if !validSignals[req.Signal] {
		s.fail(w, call, http.StatusUnprocessableEntity, "ValidationException", fmt.Sprintf("The selected signal %q is invalid.", req.Signal))
		return
	}

	s.opts.Logger.Info("Power signal", "server", serverID, "signal", req.Signal)
	s.succeed(w, call)
}

func (s *Server) succeed(w http.ResponseWriter, call Call) {
	call.Status = http.StatusNoContent
	s.record(call)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, call Call, status int, code, detail string) {
	call.Status = status
	s.record(call)
	s.respondError(w, status, code, detail)
}

// respondError writes the panel's JSON error envelope.
func (s *Server) respondError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]interface{}{
		"errors": []map[string]string{{
			"code":   code,
			"status": strconv.Itoa(status),
			"detail": detail,
		}},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.opts.Logger.Error("Failed to encode JSON response", "error", err)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func rootOrSlash(root string) string {
	if root == "" {
		return "/"
	}
	return root
}

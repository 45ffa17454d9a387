package mockpanel

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 5 * time.Minute
	HTTPWriteTimeout = 5 * time.Minute
	HTTPIdleTimeout  = 60 * time.Second

	// DefaultMaxUploadBytes caps a single file write.
	DefaultMaxUploadBytes = 256 << 20
)

// Options configures a mock panel.
type Options struct {
	Root           string // directory holding one subdirectory per server
	APIKey         string // bearer token clients must present
	RateLimit      int    // requests per minute per client IP, zero disables
	FailWrites     int    // answer the first N writes with 500
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Call is one request the panel handled.
type Call struct {
	Op       string // write, decompress, delete or power
	ServerID string
	Path     string // remote file, or the power signal for power calls
	Status   int
}

// Server is an in-process panel API double.
type Server struct {
	opts Options

	mu         sync.Mutex
	calls      []Call
	failWrites int
}

// New creates a mock panel. Root is created on first write if missing.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		opts:       opts,
		failWrites: opts.FailWrites,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.opts.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	if s.opts.RateLimit > 0 {
		r.Use(s.NewRateLimitMiddleware(s.opts.RateLimit, s.opts.Logger))
	}

	r.Route("/api/client/servers/{server}", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/files/write", s.HandleWrite)
		r.Post("/files/decompress", s.HandleDecompress)
		r.Post("/files/delete", s.HandleDelete)
		r.Post("/power", s.HandlePower)
	})

	return r
}

// Start serves the panel on host:port until the listener fails.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.opts.Logger.Info("Starting mock panel", "addr", addr, "root", s.opts.Root)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// Calls returns a copy of the recorded calls in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// FilePath returns where remotePath of serverID is stored on disk.
func (s *Server) FilePath(serverID, remotePath string) string {
	return filepath.Join(s.serverRoot(serverID), filepath.FromSlash(cleanRemote(remotePath)))
}

func (s *Server) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// takeWriteFailure consumes one injected write failure, if any remain.
func (s *Server) takeWriteFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return true
	}
	return false
}

func (s *Server) serverRoot(serverID string) string {
	return filepath.Join(s.opts.Root, filepath.Base(filepath.Clean("/"+serverID)))
}

// cleanRemote anchors a remote path at "/" so ".." cannot climb above it.
func cleanRemote(p string) string {
	return path.Clean("/" + p)
}

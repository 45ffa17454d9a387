// Package panel is a client for the game-server panel's client API.
//
// The client covers the four calls a deployment needs: write a file,
// decompress an archive, delete files and send a power signal. Credentials and
// proxy settings are fixed when the client is created and shared read-only by
// every call afterwards.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pteroupload/internal/plan"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxAttempts is the total number of tries for retried operations.
	DefaultMaxAttempts = 3

	// DefaultTimeout bounds a single HTTP request, body included.
	DefaultTimeout = 10 * time.Minute

	// RootDir is the directory remote paths are resolved against.
	RootDir = "/"
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Proxy       *plan.Proxy
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration // pause between attempts, zero for none
	RateLimit   int           // requests per minute, zero for unlimited
	Progress    ProgressFunc
	Logger      *slog.Logger
}

// Client performs authenticated calls against the panel API.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	maxElapsed  time.Duration // zero leaves maxAttempts as the only bound
	retryDelay  time.Duration
	progress    ProgressFunc
	logger      *slog.Logger
}

// NewClient creates a client for the given panel.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, &plan.ConfigurationError{Field: "panel-host", Message: fmt.Sprintf("invalid URL: %v", err)}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != nil {
		transport.Proxy = http.ProxyURL(&url.URL{
			Scheme: "http",
			User:   url.UserPassword(cfg.Proxy.Username, cfg.Proxy.Password),
			Host:   cfg.Proxy.Address(),
		})
	}

	// oauth2.Transport sets "Authorization: Bearer <key>" on every request
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: tokenSource, Base: transport},
		},
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
		progress:    cfg.Progress,
		logger:      logger,
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), cfg.RateLimit)
	}

	return c, nil
}

// Upload writes content to remotePath on the server. Expects 204 and retries
// up to the configured attempt budget.
func (c *Client) Upload(ctx context.Context, serverID, remotePath string, content []byte) error {
	endpoint := c.endpoint(serverID, "files/write") + "?" + url.Values{"file": {remotePath}}.Encode()
	total := int64(len(content))

	build := func() (*http.Request, error) {
		body := newProgressReader(bytes.NewReader(content), total, func(percent int) {
			if c.progress != nil {
				c.progress(serverID, remotePath, percent)
			}
		})

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.ContentLength = total
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		return req, nil
	}

	return c.attempt(ctx, call{
		op:          OpUpload,
		serverID:    serverID,
		path:        remotePath,
		maxAttempts: c.maxAttempts,
		build:       build,
		ok:          isNoContent,
	})
}

// Decompress extracts the archive at remotePath in place. Not retried.
func (c *Client) Decompress(ctx context.Context, serverID, remotePath string) error {
	payload := map[string]interface{}{
		"root": RootDir,
		"file": remotePath,
	}
	return c.attempt(ctx, call{
		op:          OpDecompress,
		serverID:    serverID,
		path:        remotePath,
		maxAttempts: 1,
		build:       c.jsonRequest(ctx, serverID, "files/decompress", payload),
		ok:          isSuccess,
	})
}

// Delete removes remotePath from the server. Retried like Upload.
func (c *Client) Delete(ctx context.Context, serverID, remotePath string) error {
	payload := map[string]interface{}{
		"root":  RootDir,
		"files": []string{remotePath},
	}
	return c.attempt(ctx, call{
		op:          OpDelete,
		serverID:    serverID,
		path:        remotePath,
		maxAttempts: c.maxAttempts,
		build:       c.jsonRequest(ctx, serverID, "files/delete", payload),
		ok:          isSuccess,
	})
}

// Restart sends the "restart" power signal. Not retried.
func (c *Client) Restart(ctx context.Context, serverID string) error {
	payload := map[string]interface{}{
		"signal": "restart",
	}
	return c.attempt(ctx, call{
		op:          OpRestart,
		serverID:    serverID,
		maxAttempts: 1,
		build:       c.jsonRequest(ctx, serverID, "power", payload),
		ok:          isSuccess,
	})
}

// endpoint returns the absolute URL of a per-server API path.
func (c *Client) endpoint(serverID, path string) string {
	return fmt.Sprintf("%s/api/client/servers/%s/%s", c.baseURL.String(), url.PathEscape(serverID), path)
}

// jsonRequest returns a builder producing identical JSON POST requests.
func (c *Client) jsonRequest(ctx context.Context, serverID, path string, payload interface{}) func() (*http.Request, error) {
	endpoint := c.endpoint(serverID, path)
	return func() (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

func isNoContent(status int) bool {
	return status == http.StatusNoContent
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

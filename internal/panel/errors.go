package panel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Operation names used in TransferError.
const (
	OpUpload     = "upload"
	OpDecompress = "decompress"
	OpDelete     = "delete"
	OpRestart    = "restart"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// TransferError reports a panel call that did not succeed, either because the
// retry budget was exhausted or because the operation is not retried.
type TransferError struct {
	Op         string
	ServerID   string
	Path       string // empty for restart
	StatusCode int    // last HTTP status, 0 if the last attempt never got a response
	Attempts   int
	Err        error // last observed error
}

func (e *TransferError) Error() string {
	target := e.ServerID
	if e.Path != "" {
		target = fmt.Sprintf("%s on server %s", e.Path, e.ServerID)
	}
	return fmt.Sprintf("%s of %s failed after %d attempt(s): %v", e.Op, target, e.Attempts, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// StatusError is returned for a response whose status code was not expected.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// apiErrors is the panel's JSON error envelope.
type apiErrors struct {
	Errors []struct {
		Code   string `json:"code"`
		Status string `json:"status"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// readErrorDetail extracts a human readable message from an error response.
func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope apiErrors
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Errors) > 0 {
		details := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			if e.Detail != "" {
				details = append(details, e.Detail)
			} else if e.Code != "" {
				details = append(details, e.Code)
			}
		}
		if len(details) > 0 {
			return strings.Join(details, "; ")
		}
	}

	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

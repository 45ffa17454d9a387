package panel

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// call describes one logical panel operation.
type call struct {
	op          string
	serverID    string
	path        string
	maxAttempts int
	build       func() (*http.Request, error) // must return an identical request each time
	ok          func(status int) bool
}

// attempt runs c up to c.maxAttempts times until its success predicate holds.
// A transport error or an unexpected status triggers another try. Request
// construction, rate limiter and context failures end the call at once.
func (cl *Client) attempt(ctx context.Context, c call) error {
	var (
		attempts   int
		lastStatus int
		fatal      error
	)

	operation := func() (struct{}, error) {
		attempts++
		lastStatus = 0

		req, err := c.build()
		if err != nil {
			fatal = err
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		if cl.limiter != nil {
			if err := cl.limiter.Wait(ctx); err != nil {
				fatal = err
				return struct{}{}, backoff.Permanent(err)
			}
		}

		cl.logger.Debug("panel request",
			"op", c.op,
			"server", c.serverID,
			"path", c.path,
			"attempt", attempts,
			"max_attempts", c.maxAttempts)

		resp, err := cl.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				fatal = ctx.Err()
				return struct{}{}, backoff.Permanent(fatal)
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		lastStatus = resp.StatusCode
		if !c.ok(resp.StatusCode) {
			return struct{}{}, &StatusError{
				StatusCode: resp.StatusCode,
				Detail:     readErrorDetail(resp.Body),
			}
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(cl.backOff()),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithMaxElapsedTime(cl.maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			cl.logger.Warn("panel request failed, retrying",
				"op", c.op,
				"server", c.serverID,
				"path", c.path,
				"attempt", attempts,
				"max_attempts", c.maxAttempts,
				"retry_in", next,
				"error", err)
		}),
	)
	if err == nil {
		if attempts > 1 {
			cl.logger.Info("panel request succeeded after retry",
				"op", c.op, "server", c.serverID, "path", c.path, "attempts", attempts)
		}
		return nil
	}

	if fatal != nil {
		err = fatal
	}
	return &TransferError{
		Op:         c.op,
		ServerID:   c.serverID,
		Path:       c.path,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        err,
	}
}

func (cl *Client) backOff() backoff.BackOff {
	if cl.retryDelay > 0 {
		return &backoff.ConstantBackOff{Interval: cl.retryDelay}
	}
	return &backoff.ZeroBackOff{}
}

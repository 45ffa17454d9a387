// Package deployment drives a deployment plan against the panel.
//
// Servers are processed one after another in plan order. For each server every
// mapping is resolved to local files, each file is uploaded and, when enabled,
// archives are decompressed and removed. The server is restarted once all of
// its mappings are done. The first error aborts the run.
package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pteroupload/internal/history"
	"pteroupload/internal/panel"
	"pteroupload/internal/plan"
	"pteroupload/internal/resolve"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Client is the subset of the panel API a deployment needs.
type Client interface {
	Upload(ctx context.Context, serverID, remotePath string, content []byte) error
	Decompress(ctx context.Context, serverID, remotePath string) error
	Delete(ctx context.Context, serverID, remotePath string) error
	Restart(ctx context.Context, serverID string) error
}

// Resolver expands a source pattern into local files.
type Resolver interface {
	Expand(pattern string) ([]string, error)
}

// Recorder persists runs and the operations performed during them.
type Recorder interface {
	StartRun(ctx context.Context, run *history.RunRecord) error
	FinishRun(ctx context.Context, run *history.RunRecord) error
	RecordTransfer(ctx context.Context, t *history.TransferRecord) (int64, error)
}

// Summary describes a finished run. It is returned even when the run fails
// and then counts only what completed.
type Summary struct {
	RunID          string
	Servers        int
	Uploads        int
	Decompressions int
	Deletions      int
	Restarts       int
	BytesUploaded  int64
	Duration       time.Duration
}

// Orchestrator executes one plan.
type Orchestrator struct {
	plan     *plan.Plan
	client   Client
	resolver Resolver
	recorder Recorder
	locks    *ServerLocks
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResolver replaces the filesystem resolver.
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithRecorder stores every run in r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithServerLocks makes runs sharing l refuse to overlap on a server.
func WithServerLocks(l *ServerLocks) Option {
	return func(o *Orchestrator) { o.locks = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator for p using client for every remote call.
func New(p *plan.Plan, client Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		plan:   p,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = resolve.New(p.FollowSymlinks)
	}
	return o
}

// Run executes the plan to completion or to the first error.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	started := time.Now()

	if o.locks != nil {
		release, err := o.locks.AcquireAll(o.plan.ServerIDs)
		if err != nil {
			return summary, err
		}
		defer release()
	}

	o.startRun(ctx, summary, started)

	o.logger.Info("Starting deployment",
		"run_id", summary.RunID,
		"servers", len(o.plan.ServerIDs),
		"mappings", len(o.plan.Mappings))

	var err error
	for _, serverID := range o.plan.ServerIDs {
		if err = o.deployServer(ctx, summary, serverID); err != nil {
			break
		}
		summary.Servers++
	}
	summary.Duration = time.Since(started)

	o.finishRun(ctx, summary, started, err)

	if err != nil {
		o.logger.Error("Deployment failed",
			"run_id", summary.RunID,
			"error", err,
			"duration", summary.Duration)
		return summary, err
	}

	o.logger.Info("Deployment complete",
		"run_id", summary.RunID,
		"servers", summary.Servers,
		"uploads", summary.Uploads,
		"uploaded", humanize.Bytes(uint64(summary.BytesUploaded)),
		"duration", summary.Duration.Round(time.Millisecond))
	return summary, nil
}

// deployServer uploads every mapping to one server, then restarts it.
func (o *Orchestrator) deployServer(ctx context.Context, s *Summary, serverID string) error {
	for _, m := range o.plan.Mappings {
		if err := ctx.Err(); err != nil {
			return err
		}

		files, err := o.resolver.Expand(m.Source)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			o.logger.Info("No files matched, skipping", "source", m.Source, "server", serverID)
			continue
		}
		if len(files) > 1 && !IsDirTarget(m.Target) {
			return &plan.ConfigurationError{
				Field: "target",
				Message: fmt.Sprintf("source %q matched %d files but target %q is a single file; end the target with / to upload into a directory",
					m.Source, len(files), m.Target),
			}
		}

		for _, local := range files {
			if err := o.transfer(ctx, s, serverID, local, TargetPath(m.Target, local)); err != nil {
				return err
			}
		}
	}

	if o.plan.Restart {
		err := o.client.Restart(ctx, serverID)
		o.record(ctx, s, serverID, panel.OpRestart, "", "", 0, err)
		if err != nil {
			return err
		}
		s.Restarts++
		o.logger.Info("Server restarted", "server", serverID)
	}

	return nil
}

// transfer uploads one file and runs the decompress pipeline for archives.
func (o *Orchestrator) transfer(ctx context.Context, s *Summary, serverID, local, remote string) error {
	content, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", local, err)
	}

	err = o.client.Upload(ctx, serverID, remote, content)
	o.record(ctx, s, serverID, panel.OpUpload, local, remote, int64(len(content)), err)
	if err != nil {
		return err
	}
	s.Uploads++
	s.BytesUploaded += int64(len(content))
	o.logger.Info("Uploaded file",
		"server", serverID,
		"local", local,
		"remote", remote,
		"size", humanize.Bytes(uint64(len(content))))

	if !o.plan.DecompressTarget || !IsArchive(remote) {
		return nil
	}

	err = o.client.Decompress(ctx, serverID, remote)
	o.record(ctx, s, serverID, panel.OpDecompress, "", remote, 0, err)
	if err != nil {
		return err
	}
	s.Decompressions++

	err = o.client.Delete(ctx, serverID, remote)
	o.record(ctx, s, serverID, panel.OpDelete, "", remote, 0, err)
	if err != nil {
		return err
	}
	s.Deletions++
	o.logger.Info("Decompressed archive", "server", serverID, "remote", remote)

	return nil
}

// History writes never fail the deployment; they are logged and dropped.

func (o *Orchestrator) startRun(ctx context.Context, s *Summary, started time.Time) {
	if o.recorder == nil {
		return
	}
	run := &history.RunRecord{
		ID:        s.RunID,
		PanelHost: o.plan.PanelHost,
		Servers:   o.plan.ServerIDs,
		Status:    history.StatusInProgress,
		StartedAt: started,
	}
	if err := o.recorder.StartRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Warn("Failed to record run start", "run_id", s.RunID, "error", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, s *Summary, started time.Time, runErr error) {
	if o.recorder == nil {
		return
	}

	completed := started.Add(s.Duration)
	duration := s.Duration.Seconds()
	run := &history.RunRecord{
		ID:              s.RunID,
		PanelHost:       o.plan.PanelHost,
		Servers:         o.plan.ServerIDs,
		Status:          history.StatusSuccess,
		StartedAt:       started,
		CompletedAt:     &completed,
		DurationSeconds: &duration,
		Uploads:         s.Uploads,
		Decompressions:  s.Decompressions,
		Deletions:       s.Deletions,
		Restarts:        s.Restarts,
		BytesUploaded:   s.BytesUploaded,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status = history.StatusFailed
		run.ErrorMessage = &msg
	}

	if err := o.recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.Warn("Failed to record run result", "run_id", s.RunID, "error", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, s *Summary, serverID, op, local, remote string, size int64, opErr error) {
	if o.recorder == nil {
		return
	}

	t := &history.TransferRecord{
		RunID:      s.RunID,
		ServerID:   serverID,
		Op:         op,
		LocalPath:  local,
		RemotePath: remote,
		Bytes:      size,
		Status:     history.StatusSuccess,
	}
	if opErr != nil {
		msg := opErr.Error()
		t.Status = history.StatusFailed
		t.ErrorMessage = &msg
	}

	if _, err := o.recorder.RecordTransfer(context.WithoutCancel(ctx), t); err != nil {
		o.logger.Warn("Failed to record transfer", "run_id", s.RunID, "op", op, "error", err)
	}
}

// LogProgress returns a progress callback that logs each percentage change.
func LogProgress(logger *slog.Logger) panel.ProgressFunc {
	return func(serverID, remotePath string, percent int) {
		logger.Info(fmt.Sprintf("Uploading %s to %s (%d%%)", remotePath, serverID, percent))
	}
}

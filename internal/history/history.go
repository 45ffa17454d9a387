package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// History manages deployment history in SQLite
type History struct {
	db *sql.DB
}

// NewHistory creates a new history tracker
func NewHistory(dbPath string) (*History, error) {
	// Open database connection
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	// Initialize schema
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// initSchema creates the database tables and indexes
func (h *History) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			panel_host TEXT NOT NULL,
			servers TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration_seconds REAL,
			uploads INTEGER NOT NULL DEFAULT 0,
			decompressions INTEGER NOT NULL DEFAULT 0,
			deletions INTEGER NOT NULL DEFAULT 0,
			restarts INTEGER NOT NULL DEFAULT 0,
			bytes_uploaded INTEGER NOT NULL DEFAULT 0,
			error_message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			server_id TEXT NOT NULL,
			op TEXT NOT NULL,
			local_path TEXT NOT NULL,
			remote_path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_run ON transfers(run_id, id)`,
	}

	for _, stmt := range statements {
		if _, err := h.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

// StartRun inserts an in-progress run
func (h *History) StartRun(ctx context.Context, run *RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusInProgress
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO runs (id, panel_host, servers, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.PanelHost,
		strings.Join(run.Servers, ","),
		run.Status,
		run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	return nil
}

// FinishRun stores the final status, counters and timing of a run
func (h *History) FinishRun(ctx context.Context, run *RunRecord) error {
	if run.CompletedAt == nil {
		now := time.Now()
		run.CompletedAt = &now
	}
	if run.DurationSeconds == nil {
		duration := run.CompletedAt.Sub(run.StartedAt).Seconds()
		run.DurationSeconds = &duration
	}

	result, err := h.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, completed_at = ?, duration_seconds = ?,
		    uploads = ?, decompressions = ?, deletions = ?, restarts = ?,
		    bytes_uploaded = ?, error_message = ?
		WHERE id = ?
	`,
		run.Status,
		run.CompletedAt.UTC().Format(timeLayout),
		run.DurationSeconds,
		run.Uploads,
		run.Decompressions,
		run.Deletions,
		run.Restarts,
		run.BytesUploaded,
		run.ErrorMessage,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}

	return nil
}

// RecordTransfer records a single panel operation of a run
func (h *History) RecordTransfer(ctx context.Context, t *TransferRecord) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO transfers
		(run_id, server_id, op, local_path, remote_path, bytes, status,
		 error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.RunID,
		t.ServerID,
		t.Op,
		t.LocalPath,
		t.RemotePath,
		t.Bytes,
		t.Status,
		t.ErrorMessage,
		t.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transfer record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	t.ID = id

	return id, nil
}

// GetRun returns a run by ID, or nil if it does not exist
func (h *History) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, panel_host, servers, status, started_at, completed_at,
		       duration_seconds, uploads, decompressions, deletions, restarts,
		       bytes_uploaded, error_message
		FROM runs
		WHERE id = ?
	`, id)

	record, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return record, nil
}

// RecentRuns returns up to limit runs, newest first
func (h *History) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, panel_host, servers, status, started_at, completed_at,
		       duration_seconds, uploads, decompressions, deletions, restarts,
		       bytes_uploaded, error_message
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// RunTransfers returns the operations of a run in the order they happened
func (h *History) RunTransfers(ctx context.Context, runID string) ([]TransferRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, run_id, server_id, op, local_path, remote_path, bytes,
		       status, error_message, created_at
		FROM transfers
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var records []TransferRecord
	for rows.Next() {
		var record TransferRecord
		var createdAtStr string
		if err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.ServerID,
			&record.Op,
			&record.LocalPath,
			&record.RemotePath,
			&record.Bytes,
			&record.Status,
			&record.ErrorMessage,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transfer record: %w", err)
		}

		createdAt, err := time.Parse(timeLayout, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		record.CreatedAt = createdAt
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRunRecord scans a database row into a RunRecord
// Works with both *sql.Row and *sql.Rows
func scanRunRecord(s scanner) (*RunRecord, error) {
	var record RunRecord
	var servers, startedAtStr string
	var completedAtStr sql.NullString

	err := s.Scan(
		&record.ID,
		&record.PanelHost,
		&servers,
		&record.Status,
		&startedAtStr,
		&completedAtStr,
		&record.DurationSeconds,
		&record.Uploads,
		&record.Decompressions,
		&record.Deletions,
		&record.Restarts,
		&record.BytesUploaded,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if servers != "" {
		record.Servers = strings.Split(servers, ",")
	}

	// Parse timestamps
	startedAt, err := time.Parse(timeLayout, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	record.StartedAt = startedAt

	if completedAtStr.Valid {
		completedAt, err := time.Parse(timeLayout, completedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at timestamp: %w", err)
		}
		record.CompletedAt = &completedAt
	}

	return &record, nil
}

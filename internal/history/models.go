package history

import "time"

// Run statuses.
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// RunRecord represents one deployment run in the database
type RunRecord struct {
	ID              string // uuid assigned by the orchestrator
	PanelHost       string
	Servers         []string
	Status          string // success, failed, in_progress
	StartedAt       time.Time
	CompletedAt     *time.Time // nullable
	DurationSeconds *float64   // nullable
	Uploads         int
	Decompressions  int
	Deletions       int
	Restarts        int
	BytesUploaded   int64
	ErrorMessage    *string // nullable
}

// TransferRecord represents a single panel operation performed during a run
type TransferRecord struct {
	ID           int64
	RunID        string
	ServerID     string
	Op           string // upload, decompress, delete, restart
	LocalPath    string // empty except for uploads
	RemotePath   string // empty for restart
	Bytes        int64
	Status       string // success or failed
	ErrorMessage *string // nullable
	CreatedAt    time.Time
}

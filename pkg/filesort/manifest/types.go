// Package manifest keeps the run history of filesort: one JSON entry per
// completed run listing every copy it made, plus one entry per undo.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpSort represents a sort run.
	OpSort OperationType = "sort"
	// OpUndo represents the undo of a sort run.
	OpUndo OperationType = "undo"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`

	// Source and Output are the resolved roots of a sort run.
	Source string `json:"source,omitempty"`
	Output string `json:"output,omitempty"`

	// RunID is the sort entry an undo reverted.
	RunID string `json:"run_id,omitempty"`

	Files   []FileRecord `json:"files"`
	Summary Summary      `json:"summary"`
}

// FileRecord represents one copied file.
type FileRecord struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Bucket      string    `json:"bucket"`
	Size        int64     `json:"size"`
	RemovedAt   time.Time `json:"removed_at,omitempty"` // Set when an undo trashed the copy
}

// Summary contains operation summary.
type Summary struct {
	TotalFiles  int64 `json:"total_files"`
	TotalBytes  int64 `json:"total_bytes"`
	Failed      int64 `json:"failed,omitempty"`
	Interrupted bool  `json:"interrupted,omitempty"`
}

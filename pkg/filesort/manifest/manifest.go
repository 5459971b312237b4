package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("manifest entry not found")

// Manifest manages the run history on the filesystem.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a new Manifest with the given directory.
// The directory is not created until EnsureDir is called.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string {
	return m.dir
}

// EnsureDir creates the manifest directory if it does not exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// LogRun records a sort run and returns the created entry.
func (m *Manifest) LogRun(result *types.SortResult) (*Entry, error) {
	if result == nil {
		return nil, errors.New("sort result cannot be nil")
	}

	files := make([]FileRecord, 0, len(result.Copied))
	for _, c := range result.Copied {
		files = append(files, FileRecord{
			Source:      c.Source,
			Destination: c.Destination,
			Bucket:      c.Bucket,
			Size:        c.Size,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Destination < files[j].Destination })

	entry := m.newEntry(OpSort, files)
	entry.Source = result.Source
	entry.Output = result.Output
	entry.Summary.Failed = result.Outcome.Failed
	entry.Summary.Interrupted = result.Interrupted

	return entry, m.write(entry)
}

// LogUndo records the undo of a sort run. Files are the records that were
// removed, with RemovedAt set.
func (m *Manifest) LogUndo(run *Entry, files []FileRecord) (*Entry, error) {
	if run == nil {
		return nil, errors.New("run entry cannot be nil")
	}

	entry := m.newEntry(OpUndo, files)
	entry.RunID = run.ID
	entry.Source = run.Source
	entry.Output = run.Output

	return entry, m.write(entry)
}

func (m *Manifest) newEntry(op OperationType, files []FileRecord) *Entry {
	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}

	return &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		Files:     files,
		Summary: Summary{
			TotalFiles: int64(len(files)),
			TotalBytes: totalBytes,
		},
	}
}

func (m *Manifest) write(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeEntry(entry); err != nil {
		return fmt.Errorf("writing manifest entry: %w", err)
	}
	return nil
}

// writeEntry writes an entry to a JSON file in the manifest directory
// through a temporary file and rename.
func (m *Manifest) writeEntry(entry *Entry) error {
	filePath := filepath.Join(m.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// List returns all manifest entries sorted by timestamp descending (newest first).
// If limit is 0 or negative, all entries are returned.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// Get retrieves a specific entry by ID. A unique ID prefix is accepted.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
		if strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID prefix: %s", id)
			}
			match = &entries[i]
		}
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// UndoOf returns the undo entry for a sort run, or nil if the run has not
// been undone.
func (m *Manifest) UndoOf(runID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].Operation == OpUndo && entries[i].RunID == runID {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// readAll parses every entry in the directory. Unparseable files are
// skipped. Must be called with m.mu held.
func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// readEntryFile reads and parses a manifest entry from a JSON file.
func (m *Manifest) readEntryFile(filename string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. A retention of 0 or less keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading manifest directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, f.Name())); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

// generateID creates a unique ID like "sort-2024-06-15T10-30-00-1b4e28ba".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, uuid.NewString()[:8])
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// rotatedTimeFormat names backups; microseconds keep rotations within one
// second apart.
const rotatedTimeFormat = "2006-01-02-150405.000000"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size in bytes that triggers a rotation. Zero selects
	// the default of 10MB.
	MaxSize int64

	// MaxAge is the number of days a backup is kept. Zero keeps backups
	// regardless of age.
	MaxAge int

	// MaxBackups is the number of backups kept. Zero keeps all of them,
	// subject to MaxAge.
	MaxBackups int

	// Daily also rotates on the first write of a new day.
	Daily bool
}

// DefaultRotationConfig returns a 10MB, daily, five-backup, 30-day policy.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter is an io.WriteCloser over a log file that rotates it into
// timestamped backups. It is safe for concurrent use. Each write also holds
// an advisory lock on a hidden sibling file so several filesort processes
// can append to the same log.
type RotatingWriter struct {
	path string
	cfg  RotationConfig
	lock *flock.Flock

	mu     sync.Mutex
	file   *os.File
	size   int64
	opened time.Time
}

// backup is a rotated log file.
type backup struct {
	path    string
	modTime time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories
// as needed, and prunes expired backups.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{
		path: path,
		cfg:  cfg,
		lock: flock.New(lockPath(path)),
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune(time.Now())
	return w, nil
}

// Write appends p, rotating first if p would overflow MaxSize or a day
// boundary has passed.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	now := time.Now()
	if w.due(int64(len(p)), now) {
		if err := w.rotate(now); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := w.lock.Lock(); err != nil {
		return 0, fmt.Errorf("acquiring file lock: %w", err)
	}
	defer func() { _ = w.lock.Unlock() }()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing to log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the log file. Closing twice is a no-op.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	unlockErr := w.lock.Unlock()

	switch {
	case syncErr != nil:
		return fmt.Errorf("syncing log file: %w", syncErr)
	case closeErr != nil:
		return fmt.Errorf("closing log file: %w", closeErr)
	default:
		return unlockErr
	}
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = file
	w.size = info.Size()
	w.opened = info.ModTime()
	return nil
}

func (w *RotatingWriter) due(n int64, now time.Time) bool {
	if w.size > 0 && w.size+n > w.cfg.MaxSize {
		return true
	}
	return w.cfg.Daily && w.size > 0 && !sameDay(now, w.opened)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// rotate moves the current file to a timestamped backup and reopens path.
func (w *RotatingWriter) rotate(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, w.backupName(now)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}
	w.opened = now
	w.prune(now)
	return nil
}

// backupName returns "<dir>/<stem>.<timestamp><ext>".
func (w *RotatingWriter) backupName(now time.Time) string {
	ext := filepath.Ext(w.path)
	return strings.TrimSuffix(w.path, ext) + "." + now.Format(rotatedTimeFormat) + ext
}

// backups lists rotated files of this log, newest first.
func (w *RotatingWriter) backups() []backup {
	dir, name := filepath.Split(w.path)
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext) + "."

	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil
	}

	var found []backup
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || n == name || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, backup{path: filepath.Join(dir, n), modTime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})
	return found
}

// prune removes backups beyond MaxBackups or older than MaxAge. Errors are
// ignored; a leftover backup is retried on the next rotation.
func (w *RotatingWriter) prune(now time.Time) {
	maxAge := time.Duration(w.cfg.MaxAge) * 24 * time.Hour

	for i, b := range w.backups() {
		tooMany := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := maxAge > 0 && now.Sub(b.modTime) > maxAge
		if tooMany || tooOld {
			_ = os.Remove(b.path)
		}
	}
}

// lockPath returns the advisory lock file for a log path. The leading dot
// keeps it out of backups and directory listings.
func lockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

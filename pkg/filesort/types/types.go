// Package types provides core data types for the filesort organizer.
// It includes the file entries discovered during traversal, the per-unit
// and per-run results produced by the copy engine and scheduler, the
// configuration errors reported before a run starts, and helpers for
// parsing and formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// NoExtensionBucket is the bucket for files without an extension.
const NoExtensionBucket = "no_extension"

// Configuration errors. They are detected before any filesystem mutation
// and are fatal to the whole run.
var (
	// ErrSourceNotFound indicates that the source directory does not exist.
	ErrSourceNotFound = errors.New("source directory does not exist")

	// ErrSourceNotDirectory indicates that the source path is not a directory.
	ErrSourceNotDirectory = errors.New("source path is not a directory")

	// ErrOutputInsideSource indicates that the output root resolves to the
	// source directory or to a path inside it.
	ErrOutputInsideSource = errors.New("output directory is inside the source directory")
)

// Logger is the logging surface used by the copy engine and the scheduler.
// *logging.Logger satisfies it; tests substitute a recording implementation.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// FileEntry is a path known to be a regular file at discovery time.
type FileEntry struct {
	// Path is the absolute, resolved path to the file.
	Path string `json:"path"`

	// Name is the base name of the file.
	Name string `json:"name"`

	// Ext is the lower-cased extension without the leading dot.
	// It is empty for files without an extension.
	Ext string `json:"ext"`

	// Size is the file size in bytes at discovery time.
	Size int64 `json:"size"`
}

// NewFileEntry builds a FileEntry for an absolute path.
func NewFileEntry(path string, size int64) FileEntry {
	name := filepath.Base(path)
	return FileEntry{
		Path: path,
		Name: name,
		Ext:  Extension(name),
		Size: size,
	}
}

// Bucket returns the output subdirectory name for the file.
func (f FileEntry) Bucket() string {
	return BucketFor(f.Ext)
}

// Suffix returns the final suffix of a file name including its dot, keeping
// the original case. Dotfiles without a further dot (".bashrc") and names
// ending in a dot ("file.") have no suffix.
func Suffix(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return name[i:]
}

// Stem returns the file name without its final suffix.
func Stem(name string) string {
	return strings.TrimSuffix(name, Suffix(name))
}

// Extension returns the lower-cased extension of a file name without the
// leading dot, or an empty string.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(Suffix(name), "."))
}

// BucketFor maps an extension to its bucket name.
func BucketFor(ext string) string {
	if ext == "" {
		return NoExtensionBucket
	}
	return ext
}

// EntryKind classifies a discovered filesystem entry.
type EntryKind int

// Entry kinds.
const (
	KindFile EntryKind = iota
	KindDir
	KindOther
	KindExcluded
)

// String returns the string representation of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindOther:
		return "other"
	case KindExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Status is the terminal state of a unit of work.
type Status int

// Unit statuses.
const (
	StatusCopied Status = iota
	StatusSkipped
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusCopied:
		return "copied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UnitResult is the explicit result of one copy unit.
type UnitResult struct {
	Source      string
	Destination string
	Bucket      string
	Bytes       int64
	Status      Status
	Err         error
}

// Copied builds a successful result.
func Copied(src, dst, bucket string, n int64) UnitResult {
	return UnitResult{Source: src, Destination: dst, Bucket: bucket, Bytes: n, Status: StatusCopied}
}

// Skipped builds a skipped result.
func Skipped(src string, reason error) UnitResult {
	return UnitResult{Source: src, Status: StatusSkipped, Err: reason}
}

// Failed builds a failed result.
func Failed(src string, err error) UnitResult {
	return UnitResult{Source: src, Status: StatusFailed, Err: err}
}

// Outcome aggregates the terminal states of a subtree.
type Outcome struct {
	Dirs     int64 `json:"dirs"`
	Copied   int64 `json:"copied"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
	Excluded int64 `json:"excluded"`
	Bytes    int64 `json:"bytes"`
}

// Add records a single unit result.
func (o *Outcome) Add(r UnitResult) {
	switch r.Status {
	case StatusCopied:
		o.Copied++
		o.Bytes += r.Bytes
	case StatusSkipped:
		o.Skipped++
	case StatusFailed:
		o.Failed++
	}
}

// Merge folds a child outcome into o.
func (o *Outcome) Merge(child Outcome) {
	o.Dirs += child.Dirs
	o.Copied += child.Copied
	o.Skipped += child.Skipped
	o.Failed += child.Failed
	o.Excluded += child.Excluded
	o.Bytes += child.Bytes
}

// CopyRecord describes one successful copy.
type CopyRecord struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Bucket      string `json:"bucket"`
	Size        int64  `json:"size"`
}

// SortError represents a per-entry error encountered during a run.
// It pairs a path with the error message for reporting.
type SortError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// SortResult contains the aggregated results of a run.
type SortResult struct {
	// Source is the resolved source directory.
	Source string `json:"source"`

	// Output is the resolved output root.
	Output string `json:"output"`

	// Outcome aggregates the terminal states of every unit.
	Outcome Outcome `json:"outcome"`

	// Copied lists every successful copy.
	Copied []CopyRecord `json:"copied"`

	// Errors contains the per-entry errors recorded during the run.
	Errors []SortError `json:"errors,omitempty"`

	// Elapsed is the total time taken by the run.
	Elapsed time.Duration `json:"elapsed"`

	// Concurrency is the limiter capacity used by the run.
	Concurrency int `json:"concurrency"`

	// PeakActive is the highest number of concurrently active units.
	PeakActive int64 `json:"peak_active"`

	// Interrupted is set when the run context was cancelled.
	Interrupted bool `json:"interrupted,omitempty"`
}

// SortProgress reports real-time progress of a run.
type SortProgress struct {
	DirsListed  int64  `json:"dirs_listed"`
	FilesCopied int64  `json:"files_copied"`
	Failed      int64  `json:"failed"`
	BytesCopied int64  `json:"bytes_copied"`
	Active      int64  `json:"active"`
	CurrentPath string `json:"current_path"`
	Done        bool   `json:"done,omitempty"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// Suffixes K, M, G and T (optionally followed by B or iB) are binary units.
// Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

package trash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/manifest"
	"github.com/jamesainslie/filesort/pkg/filesort/sorter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// ErrNotSortRun is returned when asked to revert an entry that is not a
// sort run.
var ErrNotSortRun = errors.New("manifest entry is not a sort run")

// Options configures a revert.
type Options struct {
	// Remove disposes of each copy. Defaults to MoveToTrash.
	Remove Remover

	// DryRun reports what would be removed without touching anything.
	DryRun bool

	Logger types.Logger
}

// Result describes the outcome of a revert.
type Result struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Removed lists copies that were removed, with RemovedAt set.
	Removed []manifest.FileRecord `json:"removed" yaml:"removed"`

	// Missing lists destinations that no longer exist.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	// Changed lists destinations whose size no longer matches the copy.
	// They are left in place.
	Changed []string `json:"changed,omitempty" yaml:"changed,omitempty"`

	Errors []types.SortError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Buckets lists bucket directories removed because they became empty.
	Buckets []string `json:"buckets,omitempty" yaml:"buckets,omitempty"`

	Bytes  int64 `json:"bytes" yaml:"bytes"`
	DryRun bool  `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// Revert removes the copies recorded by a sort run. Sources are never
// touched. Destinations outside the run's output root, or modified since
// the run, are left alone. Bucket directories emptied by the revert are
// removed.
func Revert(ctx context.Context, run *manifest.Entry, opts Options) (*Result, error) {
	if run == nil || run.Operation != manifest.OpSort {
		return nil, ErrNotSortRun
	}
	if opts.Remove == nil {
		opts.Remove = MoveToTrash
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	res := &Result{
		RunID:   run.ID,
		Removed: make([]manifest.FileRecord, 0, len(run.Files)),
		DryRun:  opts.DryRun,
	}
	buckets := make(map[string]bool)

	for _, rec := range run.Files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !sorter.Within(rec.Destination, run.Output) || rec.Destination == run.Output {
			logger.Warn("refusing to remove path outside output", "path", rec.Destination, "output", run.Output)
			res.Errors = append(res.Errors, types.SortError{
				Path:  rec.Destination,
				Error: "outside output directory " + run.Output,
			})
			continue
		}

		info, err := os.Lstat(rec.Destination)
		switch {
		case os.IsNotExist(err):
			res.Missing = append(res.Missing, rec.Destination)
			continue
		case err != nil:
			res.Errors = append(res.Errors, types.SortError{Path: rec.Destination, Error: err.Error()})
			continue
		case !info.Mode().IsRegular() || info.Size() != rec.Size:
			logger.Warn("copy changed since run, keeping", "path", rec.Destination)
			res.Changed = append(res.Changed, rec.Destination)
			continue
		}

		if !opts.DryRun {
			if err := opts.Remove(ctx, rec.Destination); err != nil {
				logger.Error("removing copy failed", "path", rec.Destination, "error", err)
				res.Errors = append(res.Errors, types.SortError{Path: rec.Destination, Error: err.Error()})
				continue
			}
		}

		rec.RemovedAt = time.Now().UTC()
		res.Removed = append(res.Removed, rec)
		res.Bytes += rec.Size
		buckets[filepath.Dir(rec.Destination)] = true
		logger.Debug("copy removed", "path", rec.Destination)
	}

	if !opts.DryRun {
		res.Buckets = removeEmptyBuckets(buckets)
	}

	logger.Info("revert finished",
		"run", run.ID,
		"removed", len(res.Removed),
		"missing", len(res.Missing),
		"changed", len(res.Changed),
		"errors", len(res.Errors),
		"dry_run", opts.DryRun,
	)
	return res, nil
}

// removeEmptyBuckets removes each directory that is now empty. os.Remove
// refuses non-empty directories, so buckets still holding files survive.
func removeEmptyBuckets(dirs map[string]bool) []string {
	removed := make([]string, 0, len(dirs))
	for dir := range dirs {
		if err := os.Remove(dir); err == nil {
			removed = append(removed, dir)
		}
	}
	sort.Strings(removed)
	return removed
}

// Summary returns a one-line description of the result.
func (r *Result) Summary() string {
	verb := "removed"
	if r.DryRun {
		verb = "would remove"
	}
	return fmt.Sprintf("%s %d copies (%s), %d missing, %d changed, %d errors",
		verb, len(r.Removed), types.FormatSize(r.Bytes), len(r.Missing), len(r.Changed), len(r.Errors))
}

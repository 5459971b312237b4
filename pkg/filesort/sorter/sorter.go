package sorter

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/filesort/pkg/filesort/copier"
	"github.com/jamesainslie/filesort/pkg/filesort/filter"
	"github.com/jamesainslie/filesort/pkg/filesort/limiter"
	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/tuner"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// Sorter organizes one source tree into extension buckets.
// A Sorter performs a single run; create a new one for each run.
type Sorter struct {
	opts   Options
	logger types.Logger

	source  string
	output  string
	filter  *filter.Filter
	limiter *limiter.Limiter
	copier  *copier.Copier

	// Atomic counters for thread-safe progress reporting.
	dirsListed  atomic.Int64
	filesCopied atomic.Int64
	failed      atomic.Int64
	bytesCopied atomic.Int64

	// currentPath is the directory most recently listed (for progress).
	currentPath atomic.Value

	// lastProgress tracks when we last reported progress to avoid excessive callbacks.
	lastProgress atomic.Int64

	done atomic.Bool

	errors   []types.SortError
	errorsMu sync.Mutex

	copied   []types.CopyRecord
	copiedMu sync.Mutex
}

// New creates a Sorter with the given options.
func New(opts Options) *Sorter {
	s := &Sorter{
		opts:   opts,
		logger: opts.Logger,
		errors: make([]types.SortError, 0),
		copied: make([]types.CopyRecord, 0),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.currentPath.Store("")
	return s
}

// Run validates the roots, creates the output root and traverses the source
// until every unit has reached a terminal state.
//
// Configuration errors (types.ErrSourceNotFound, types.ErrSourceNotDirectory,
// types.ErrOutputInsideSource) are returned before the filesystem is touched.
// Per-entry failures never fail the run; they are counted in the outcome
// and listed in the result's Errors. If ctx is cancelled the partial result
// is returned together with ctx.Err().
func (s *Sorter) Run(ctx context.Context) (*types.SortResult, error) {
	startTime := time.Now()

	src, out, err := Resolve(s.opts.Source, s.opts.Output)
	if err != nil {
		return nil, err
	}

	f, err := filter.New(src, s.opts.Filter...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	tuned := tuner.CalculateWithOverrides(detectResources(s.opts), s.opts.Concurrency, s.opts.ChunkSize)

	s.source = src
	s.output = out
	s.filter = f
	s.limiter = limiter.New(tuned.Concurrency)
	s.copier = copier.New(copier.Options{
		OutputRoot: out,
		ChunkSize:  tuned.ChunkSize,
		Limiter:    s.limiter,
		Logger:     s.logger,
		OnCopy:     s.recordCopy,
	})

	s.logger.Info("sort started",
		"source", src,
		"output", out,
		"concurrency", tuned.Concurrency,
		"chunk_size", types.FormatSize(int64(tuned.ChunkSize)),
	)

	s.currentPath.Store(src)
	s.reportProgressForce()

	outcome := s.traverse(ctx, src, 0)

	s.done.Store(true)
	s.reportProgressForce()

	result := &types.SortResult{
		Source:      src,
		Output:      out,
		Outcome:     outcome,
		Copied:      s.copied,
		Errors:      s.errors,
		Elapsed:     time.Since(startTime),
		Concurrency: s.limiter.Capacity(),
		PeakActive:  s.limiter.Peak(),
	}

	if err := ctx.Err(); err != nil {
		result.Interrupted = true
		s.logger.Warn("sort interrupted",
			"copied", outcome.Copied,
			"failed", outcome.Failed,
			"elapsed", result.Elapsed.Round(time.Millisecond),
		)
		return result, err
	}

	s.logger.Info("sort finished",
		"dirs", outcome.Dirs,
		"copied", outcome.Copied,
		"skipped", outcome.Skipped,
		"excluded", outcome.Excluded,
		"failed", outcome.Failed,
		"bytes", types.FormatSize(outcome.Bytes),
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return result, nil
}

// detectResources skips detection when both settings are given explicitly.
func detectResources(opts Options) tuner.SystemResources {
	if opts.Concurrency > 0 && opts.ChunkSize > 0 {
		return tuner.SystemResources{}
	}
	resources, _ := tuner.Detect()
	return resources
}

// traverse lists one directory and schedules a unit per child entry, then
// waits for the whole subtree. The directory holds a limiter slot only
// while it lists and schedules; waiting with the slot held would deadlock
// any tree deeper than the limiter capacity.
func (s *Sorter) traverse(ctx context.Context, dir string, depth int) types.Outcome {
	var out types.Outcome

	if err := s.limiter.Acquire(ctx); err != nil {
		s.logger.Debug("directory skipped", "path", dir, "reason", err)
		out.Skipped++
		return out
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.limiter.Release()
		s.logger.Error("listing failed", "path", dir, "error", err)
		s.addError(dir, err)
		out.Failed++
		return out
	}

	out.Dirs++
	s.dirsListed.Add(1)
	s.currentPath.Store(dir)
	s.reportProgress()

	children := make([]types.Outcome, len(entries))
	var wg sync.WaitGroup

	for i, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		path := filepath.Join(dir, entry.Name())
		info, err := os.Lstat(path)
		if err != nil {
			s.logger.Error("resolving entry failed", "path", path, "error", err)
			s.addError(path, err)
			out.Failed++
			continue
		}

		switch s.classify(path, info, depth+1) {
		case types.KindExcluded:
			s.logger.Debug("entry excluded", "path", path)
			out.Excluded++

		case types.KindDir:
			wg.Add(1)
			go func(i int, path string) {
				defer wg.Done()
				children[i] = s.traverse(ctx, path, depth+1)
			}(i, path)

		case types.KindFile:
			file := types.NewFileEntry(path, info.Size())
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res := s.copier.Copy(ctx, file)
				s.recordResult(res)
				children[i].Add(res)
			}(i)

		default:
			s.logger.Warn("skipping non-regular entry", "path", path, "type", info.Mode().Type().String())
			out.Skipped++
		}
	}

	s.limiter.Release()
	wg.Wait()

	for _, child := range children {
		out.Merge(child)
	}
	return out
}

// classify decides what happens to one entry. Symbolic links are never
// followed, so they classify as other along with devices, sockets and pipes.
func (s *Sorter) classify(path string, info fs.FileInfo, depth int) types.EntryKind {
	if Within(path, s.output) {
		return types.KindExcluded
	}

	isDir := info.IsDir()
	if s.filter.Excluded(path, isDir) {
		return types.KindExcluded
	}

	switch {
	case isDir:
		if !s.filter.Descend(depth) {
			return types.KindExcluded
		}
		return types.KindDir
	case info.Mode().IsRegular():
		fi := filter.FileInfo{
			Path:    path,
			Ext:     types.Extension(info.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Depth:   depth,
		}
		if !s.filter.Match(fi) {
			return types.KindExcluded
		}
		return types.KindFile
	default:
		return types.KindOther
	}
}

// recordResult updates counters for a finished copy unit.
func (s *Sorter) recordResult(res types.UnitResult) {
	switch res.Status {
	case types.StatusCopied:
		s.filesCopied.Add(1)
		s.bytesCopied.Add(res.Bytes)
	case types.StatusFailed:
		s.failed.Add(1)
		s.addError(res.Source, res.Err)
	}
	s.reportProgress()
}

// recordCopy collects a successful copy and forwards it to OnCopy.
func (s *Sorter) recordCopy(rec types.CopyRecord) {
	s.copiedMu.Lock()
	s.copied = append(s.copied, rec)
	s.copiedMu.Unlock()

	if s.opts.OnCopy != nil {
		s.opts.OnCopy(rec)
	}
}

// addError adds an error to the error list thread-safely.
func (s *Sorter) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.SortError{
		Path:  path,
		Error: err.Error(),
	})
	s.errorsMu.Unlock()
}

// reportProgress calls the progress callback if configured.
// Throttles calls to avoid excessive overhead.
func (s *Sorter) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}

	s.sendProgress()
}

// reportProgressForce calls the progress callback immediately, bypassing
// the throttle. Used at the start and end of a run.
func (s *Sorter) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Sorter) sendProgress() {
	currentPath, _ := s.currentPath.Load().(string)

	s.opts.OnProgress(types.SortProgress{
		DirsListed:  s.dirsListed.Load(),
		FilesCopied: s.filesCopied.Load(),
		Failed:      s.failed.Load(),
		BytesCopied: s.bytesCopied.Load(),
		Active:      s.limiter.Active(),
		CurrentPath: currentPath,
		Done:        s.done.Load(),
	})
}

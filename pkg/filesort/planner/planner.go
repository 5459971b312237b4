// Package planner previews a filesort run. It walks the source with
// fastwalk, applies the same exclusion and selection rules as the sorter
// and reports the destination every file would get, without creating,
// writing or removing anything.
package planner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/filesort/pkg/filesort/copier"
	"github.com/jamesainslie/filesort/pkg/filesort/filter"
	"github.com/jamesainslie/filesort/pkg/filesort/sorter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// Options configures a plan. The fields match sorter.Options.
type Options struct {
	Source string
	Output string
	Filter []filter.Option
}

// PlannedCopy is one copy a run would perform.
type PlannedCopy struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Bucket      string `json:"bucket" yaml:"bucket"`
	Size        int64  `json:"size" yaml:"size"`
}

// BucketSummary aggregates the planned copies of one bucket.
type BucketSummary struct {
	Name  string `json:"name" yaml:"name"`
	Files int64  `json:"files" yaml:"files"`
	Bytes int64  `json:"bytes" yaml:"bytes"`

	// Renamed counts copies that need a disambiguated name.
	Renamed int64 `json:"renamed" yaml:"renamed"`
}

// PlanResult is the preview of a run.
type PlanResult struct {
	Source   string            `json:"source" yaml:"source"`
	Output   string            `json:"output" yaml:"output"`
	Copies   []PlannedCopy     `json:"copies" yaml:"copies"`
	Buckets  []BucketSummary   `json:"buckets" yaml:"buckets"`
	Skipped  []string          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Excluded int64             `json:"excluded" yaml:"excluded"`
	Errors   []types.SortError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Bytes    int64             `json:"bytes" yaml:"bytes"`
	Elapsed  time.Duration     `json:"elapsed" yaml:"elapsed"`
}

type walker struct {
	output string
	filter *filter.Filter

	mu       sync.Mutex
	files    []types.FileEntry
	skipped  []string
	excluded int64
	errors   []types.SortError
}

// Plan checks the same preconditions as a run and previews its copies.
// Collision numbering is simulated in path order against the bucket
// contents already present in the output root; the order of a real run is
// not deterministic, so names beyond the first of a group may differ.
func Plan(ctx context.Context, opts Options) (*PlanResult, error) {
	startTime := time.Now()

	src, out, err := sorter.Resolve(opts.Source, opts.Output)
	if err != nil {
		return nil, err
	}

	f, err := filter.New(src, opts.Filter...)
	if err != nil {
		return nil, err
	}

	w := &walker{output: out, filter: f}
	conf := fastwalk.Config{
		Follow: false,
	}
	walkErr := fastwalk.Walk(&conf, src, w.callback(ctx, src))
	if walkErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, walkErr
	}

	result := &PlanResult{
		Source:   src,
		Output:   out,
		Skipped:  w.skipped,
		Excluded: w.excluded,
		Errors:   w.errors,
	}
	result.Copies, result.Buckets = assign(out, w.files)
	for _, c := range result.Copies {
		result.Bytes += c.Size
	}
	sort.Strings(result.Skipped)
	result.Elapsed = time.Since(startTime)

	return result, nil
}

func (w *walker) callback(ctx context.Context, root string) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			w.addError(path, err)
			return nil
		}

		if path == root {
			return nil
		}

		depth := depthOf(root, path)
		isDir := d.IsDir()

		if sorter.Within(path, w.output) || w.filter.Excluded(path, isDir) {
			w.exclude()
			if isDir {
				return fastwalk.SkipDir
			}
			return nil
		}

		switch {
		case isDir:
			if !w.filter.Descend(depth) {
				w.exclude()
				return fastwalk.SkipDir
			}
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				w.addError(path, err)
				return nil
			}
			fi := filter.FileInfo{
				Path:    path,
				Ext:     types.Extension(d.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Depth:   depth,
			}
			if !w.filter.Match(fi) {
				w.exclude()
				return nil
			}
			w.mu.Lock()
			w.files = append(w.files, types.NewFileEntry(path, info.Size()))
			w.mu.Unlock()
		default:
			w.mu.Lock()
			w.skipped = append(w.skipped, path)
			w.mu.Unlock()
		}
		return nil
	}
}

func (w *walker) exclude() {
	w.mu.Lock()
	w.excluded++
	w.mu.Unlock()
}

func (w *walker) addError(path string, err error) {
	w.mu.Lock()
	w.errors = append(w.errors, types.SortError{Path: path, Error: err.Error()})
	w.mu.Unlock()
}

// assign simulates destination naming in path order.
func assign(output string, files []types.FileEntry) ([]PlannedCopy, []BucketSummary) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	taken := make(map[string]map[string]bool)
	summaries := make(map[string]*BucketSummary)
	copies := make([]PlannedCopy, 0, len(files))

	for _, file := range files {
		bucket := file.Bucket()
		names, ok := taken[bucket]
		if !ok {
			names = existingNames(filepath.Join(output, bucket))
			taken[bucket] = names
			summaries[bucket] = &BucketSummary{Name: bucket}
		}

		name := file.Name
		for i := 1; names[name]; i++ {
			name = copier.Candidate(file.Name, i)
		}
		names[name] = true

		summary := summaries[bucket]
		summary.Files++
		summary.Bytes += file.Size
		if name != file.Name {
			summary.Renamed++
		}

		copies = append(copies, PlannedCopy{
			Source:      file.Path,
			Destination: filepath.Join(output, bucket, name),
			Bucket:      bucket,
			Size:        file.Size,
		})
	}

	buckets := make([]BucketSummary, 0, len(summaries))
	for _, s := range summaries {
		buckets = append(buckets, *s)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Files != buckets[j].Files {
			return buckets[i].Files > buckets[j].Files
		}
		return buckets[i].Name < buckets[j].Name
	})

	return copies, buckets
}

// existingNames lists a bucket directory. A missing bucket is empty.
func existingNames(dir string) map[string]bool {
	names := make(map[string]bool)
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Package output renders filesort reports for runs and plans in several
// formats (pretty, plain, json, yaml, tsv, csv, markdown, paths, null and
// template).
//
// Formatters are kept in a registry and selected by name at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromSort(result)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/planner"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// logger is the package-level logger for output operations.
var logger = logging.Get("output")

// Mode tells a formatter whether copies were made or only planned.
type Mode string

const (
	ModeSort Mode = "sort"
	ModePlan Mode = "plan"
)

// Copy is one copy performed or planned.
type Copy struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Bucket      string `json:"bucket" yaml:"bucket"`
	Size        int64  `json:"size" yaml:"size"`
	SizeHuman   string `json:"size_human" yaml:"size_human"`
}

// Renamed reports whether the copy needed a disambiguated name.
func (c Copy) Renamed() bool {
	return filepath.Base(c.Source) != filepath.Base(c.Destination)
}

// Bucket aggregates the copies of one extension bucket.
type Bucket struct {
	Name    string `json:"name" yaml:"name"`
	Files   int64  `json:"files" yaml:"files"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
	Renamed int64  `json:"renamed" yaml:"renamed"`
}

// Stats contains the counters of a run or plan.
type Stats struct {
	Dirs        int64         `json:"dirs" yaml:"dirs"`
	Copied      int64         `json:"copied" yaml:"copied"`
	Skipped     int64         `json:"skipped" yaml:"skipped"`
	Excluded    int64         `json:"excluded" yaml:"excluded"`
	Failed      int64         `json:"failed" yaml:"failed"`
	Bytes       int64         `json:"bytes" yaml:"bytes"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Concurrency int           `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	PeakActive  int64         `json:"peak_active,omitempty" yaml:"peak_active,omitempty"`
}

// Result contains everything a formatter renders.
type Result struct {
	Mode   Mode   `json:"mode" yaml:"mode"`
	Source string `json:"source" yaml:"source"`
	Output string `json:"output" yaml:"output"`

	// Copies is ordered by destination.
	Copies []Copy `json:"copies" yaml:"copies"`

	// Buckets is ordered by file count descending, then name.
	Buckets []Bucket `json:"buckets" yaml:"buckets"`

	Stats  Stats             `json:"stats" yaml:"stats"`
	Errors []types.SortError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// RunID is the manifest entry recorded for the run, if any.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Interrupted bool     `json:"interrupted" yaml:"interrupted"`
}

// FromSort builds a Result from a completed or interrupted run.
func FromSort(r *types.SortResult) *Result {
	copies := make([]Copy, 0, len(r.Copied))
	for _, c := range r.Copied {
		copies = append(copies, newCopy(c.Source, c.Destination, c.Bucket, c.Size))
	}

	return &Result{
		Mode:    ModeSort,
		Source:  r.Source,
		Output:  r.Output,
		Copies:  sortCopies(copies),
		Buckets: summarize(copies),
		Stats: Stats{
			Dirs:        r.Outcome.Dirs,
			Copied:      r.Outcome.Copied,
			Skipped:     r.Outcome.Skipped,
			Excluded:    r.Outcome.Excluded,
			Failed:      r.Outcome.Failed,
			Bytes:       r.Outcome.Bytes,
			Duration:    r.Elapsed,
			Concurrency: r.Concurrency,
			PeakActive:  r.PeakActive,
		},
		Errors:      r.Errors,
		Interrupted: r.Interrupted,
	}
}

// FromPlan builds a Result from a plan.
func FromPlan(p *planner.PlanResult) *Result {
	copies := make([]Copy, 0, len(p.Copies))
	for _, c := range p.Copies {
		copies = append(copies, newCopy(c.Source, c.Destination, c.Bucket, c.Size))
	}

	buckets := make([]Bucket, 0, len(p.Buckets))
	for _, b := range p.Buckets {
		buckets = append(buckets, Bucket{Name: b.Name, Files: b.Files, Bytes: b.Bytes, Renamed: b.Renamed})
	}

	return &Result{
		Mode:    ModePlan,
		Source:  p.Source,
		Output:  p.Output,
		Copies:  sortCopies(copies),
		Buckets: buckets,
		Stats: Stats{
			Copied:   int64(len(p.Copies)),
			Skipped:  int64(len(p.Skipped)),
			Excluded: p.Excluded,
			Failed:   int64(len(p.Errors)),
			Bytes:    p.Bytes,
			Duration: p.Elapsed,
		},
		Errors: p.Errors,
	}
}

func newCopy(src, dst, bucket string, size int64) Copy {
	return Copy{
		Source:      src,
		Destination: dst,
		Bucket:      bucket,
		Size:        size,
		SizeHuman:   types.FormatSize(size),
	}
}

func sortCopies(copies []Copy) []Copy {
	sort.Slice(copies, func(i, j int) bool {
		return copies[i].Destination < copies[j].Destination
	})
	return copies
}

func summarize(copies []Copy) []Bucket {
	byName := make(map[string]*Bucket)
	for _, c := range copies {
		b, ok := byName[c.Bucket]
		if !ok {
			b = &Bucket{Name: c.Bucket}
			byName[c.Bucket] = b
		}
		b.Files++
		b.Bytes += c.Size
		if c.Renamed() {
			b.Renamed++
		}
	}

	buckets := make([]Bucket, 0, len(byName))
	for _, b := range byName {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Files != buckets[j].Files {
			return buckets[i].Files > buckets[j].Files
		}
		return buckets[i].Name < buckets[j].Name
	})
	return buckets
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// Write renders r with the formatter registered under name and writes it to w.
func Write(w io.Writer, name string, r *Result) error {
	formatter, err := Get(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting %s output: %w", name, err)
	}

	logger.Debug("report rendered", "format", name, "mode", r.Mode, "bytes", buf.Len())
	_, err = buf.WriteTo(w)
	return err
}

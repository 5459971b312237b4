// Package sorter implements the traversal scheduler of filesort. It walks a
// source tree with one goroutine per entry, copies every regular file into
// the extension bucket under the output root, and bounds the number of
// concurrently active units with a single limiter shared by the whole run.
package sorter

import (
	"github.com/jamesainslie/filesort/pkg/filesort/filter"
	"github.com/jamesainslie/filesort/pkg/filesort/limiter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// DefaultOutput is the output directory used when none is given.
const DefaultOutput = "dist"

// Options configures a run.
type Options struct {
	// Source is the directory to organize. It must exist.
	Source string

	// Output is the root the extension buckets are created in.
	// Empty uses DefaultOutput relative to the working directory.
	Output string

	// Concurrency is the capacity of the shared limiter.
	// Values below 1 select an automatic limit from the detected resources.
	Concurrency int

	// ChunkSize is the size of each streamed read/write in bytes.
	// Values below 1 use the automatic or default chunk size.
	ChunkSize int

	// Filter holds exclusion and selection options. They are applied
	// against the resolved source root.
	Filter []filter.Option

	// Logger receives per-unit records. If nil, records are discarded.
	Logger types.Logger

	// OnProgress is called periodically with run progress updates.
	// It must be safe to call from multiple goroutines.
	OnProgress func(types.SortProgress)

	// OnCopy is called after every successful copy.
	// It must be safe to call from multiple goroutines.
	OnCopy func(types.CopyRecord)
}

// DefaultOptions returns options with the default output and concurrency.
func DefaultOptions() Options {
	return Options{
		Output:      DefaultOutput,
		Concurrency: limiter.DefaultCapacity,
	}
}

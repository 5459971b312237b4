// Package copier implements the copy engine of filesort. Each call copies a
// single regular file into the extension bucket under the output root,
// choosing a name that never overwrites an existing entry and streaming the
// content in fixed-size chunks.
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jamesainslie/filesort/pkg/filesort/limiter"
	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// DefaultChunkSize is the default size of the buffer used to stream files.
const DefaultChunkSize = int(types.MiB)

// maxProbes caps the number of disambiguated names tried in one bucket.
const maxProbes = 1 << 20

// ErrNoFreeName is returned when every probed destination name is taken.
var ErrNoFreeName = errors.New("no free destination name in bucket")

// Options configures the copy engine.
type Options struct {
	// OutputRoot is the resolved absolute output directory.
	OutputRoot string

	// ChunkSize is the size of each read/write during streaming.
	// Values below 1 use DefaultChunkSize.
	ChunkSize int

	// Limiter bounds the number of concurrently active units.
	// If nil, a limiter with the default capacity is created.
	Limiter *limiter.Limiter

	// Logger receives one info record per copy and one error record per failure.
	// If nil, records are discarded.
	Logger types.Logger

	// OnCopy is called after every successful copy.
	// It must be safe to call from multiple goroutines.
	OnCopy func(types.CopyRecord)
}

// Copier copies files into extension buckets. It is safe for concurrent use.
type Copier struct {
	opts Options

	// buckets maps a bucket directory to the mutex serializing its
	// creation and destination-name reservation.
	buckets sync.Map

	bufPool sync.Pool
}

// New creates a Copier with the given options.
func New(opts Options) *Copier {
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Limiter == nil {
		opts.Limiter = limiter.New(limiter.DefaultCapacity)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	c := &Copier{opts: opts}
	size := opts.ChunkSize
	c.bufPool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return c
}

// Copy copies one file into its bucket under the output root.
// It holds a limiter slot for the whole unit and never returns an error:
// failures are reported in the result and logged, so sibling copies are
// unaffected. A failed copy may leave a truncated destination file behind.
func (c *Copier) Copy(ctx context.Context, entry types.FileEntry) types.UnitResult {
	if err := c.opts.Limiter.Acquire(ctx); err != nil {
		c.opts.Logger.Debug("copy skipped", "source", entry.Path, "reason", err)
		return types.Skipped(entry.Path, err)
	}
	defer c.opts.Limiter.Release()

	res := c.copyFile(ctx, entry)
	if res.Status == types.StatusSkipped {
		c.opts.Logger.Debug("copy skipped", "source", entry.Path, "reason", res.Err)
		return res
	}
	if res.Status == types.StatusFailed {
		c.opts.Logger.Error("copy failed", "source", entry.Path, "destination", res.Destination, "error", res.Err)
		return res
	}

	c.opts.Logger.Info("copied", "source", res.Source, "destination", res.Destination, "size", types.FormatSize(res.Bytes))
	if c.opts.OnCopy != nil {
		c.opts.OnCopy(types.CopyRecord{
			Source:      res.Source,
			Destination: res.Destination,
			Bucket:      res.Bucket,
			Size:        res.Bytes,
		})
	}
	return res
}

// copyFile performs the copy while the caller holds a limiter slot.
func (c *Copier) copyFile(ctx context.Context, entry types.FileEntry) types.UnitResult {
	in, err := os.Open(entry.Path)
	if err != nil {
		return types.Failed(entry.Path, fmt.Errorf("open source: %w", err))
	}
	defer in.Close()

	// No destination is reserved once the run is cancelled.
	if err := ctx.Err(); err != nil {
		return types.Skipped(entry.Path, err)
	}

	bucket := entry.Bucket()
	out, dst, err := c.reserve(filepath.Join(c.opts.OutputRoot, bucket), entry.Name)
	if err != nil {
		return types.Failed(entry.Path, err)
	}

	n, err := c.stream(ctx, out, in)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close destination: %w", closeErr)
	}
	if err != nil && n == 0 && ctx.Err() != nil {
		// Cancelled before any data landed: release the reserved name.
		if rmErr := os.Remove(dst); rmErr != nil {
			c.opts.Logger.Warn("removing empty destination failed", "destination", dst, "error", rmErr)
		}
		return types.Skipped(entry.Path, err)
	}
	if err != nil {
		res := types.Failed(entry.Path, err)
		res.Destination = dst
		res.Bucket = bucket
		res.Bytes = n
		return res
	}

	return types.Copied(entry.Path, dst, bucket, n)
}

// reserve creates the bucket directory if needed and exclusively creates the
// first free destination name in it. Creation and probing for one bucket are
// serialized within the process; the exclusive create also keeps a name
// claimed by another process from being overwritten.
func (c *Copier) reserve(dir, name string) (*os.File, string, error) {
	mu := c.bucketLock(dir)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create bucket %s: %w", dir, err)
	}

	for i := 0; i < maxProbes; i++ {
		path := filepath.Join(dir, Candidate(name, i))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create destination %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("%w: %s in %s", ErrNoFreeName, name, dir)
}

// bucketLock returns the mutex for a bucket directory.
func (c *Copier) bucketLock(dir string) *sync.Mutex {
	mu, _ := c.buckets.LoadOrStore(dir, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// stream copies src to dst one chunk at a time, checking for cancellation
// between chunks. Peak memory per copy is one chunk regardless of file size.
func (c *Copier) stream(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	bufp := c.bufPool.Get().(*[]byte)
	defer c.bufPool.Put(bufp)
	buf := *bufp

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("write destination: %w", werr)
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read source: %w", rerr)
		}
	}
}

// Candidate returns the i-th destination name probed for a file name.
// Probe 0 is the original name; probe i inserts " (i)" before the suffix,
// so "b.txt" becomes "b (1).txt".
func Candidate(name string, i int) string {
	if i == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)%s", types.Stem(name), i, types.Suffix(name))
}

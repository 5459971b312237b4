package copier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/filesort/pkg/filesort/limiter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

type record struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	records []record
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.add("error", msg) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.level == level {
			n++
		}
	}
	return n
}

func writeFile(t *testing.T, path string, data []byte) types.FileEntry {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return types.NewFileEntry(path, int64(len(data)))
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		name string
		i    int
		want string
	}{
		{"b.txt", 0, "b.txt"},
		{"b.txt", 1, "b (1).txt"},
		{"b.txt", 12, "b (12).txt"},
		{"Makefile", 2, "Makefile (2)"},
		{"archive.tar.gz", 1, "archive.tar (1).gz"},
		{".bashrc", 1, ".bashrc (1)"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.name, tt.i), func(t *testing.T) {
			assert.Equal(t, tt.want, Candidate(tt.name, tt.i))
		})
	}
}

func TestCopy_ContentAndBucket(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	data := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	entry := writeFile(t, filepath.Join(src, "Report.PDF"), data)

	logger := &recordingLogger{}
	c := New(Options{OutputRoot: out, ChunkSize: 1000, Logger: logger})

	res := c.Copy(context.Background(), entry)
	require.Equal(t, types.StatusCopied, res.Status, "err: %v", res.Err)
	assert.Equal(t, "pdf", res.Bucket)
	assert.Equal(t, filepath.Join(out, "pdf", "Report.PDF"), res.Destination)
	assert.Equal(t, int64(len(data)), res.Bytes)

	got, err := os.ReadFile(res.Destination)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	orig, err := os.ReadFile(entry.Path)
	require.NoError(t, err)
	assert.Equal(t, data, orig, "source must be left untouched")

	assert.Equal(t, 1, logger.count("info"))
	assert.Equal(t, 0, logger.count("error"))
}

func TestCopy_NoExtension(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	entry := writeFile(t, filepath.Join(src, "README"), []byte("hi"))
	res := New(Options{OutputRoot: out}).Copy(context.Background(), entry)

	require.Equal(t, types.StatusCopied, res.Status)
	assert.Equal(t, filepath.Join(out, types.NoExtensionBucket, "README"), res.Destination)
}

func TestCopy_EmptyFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	entry := writeFile(t, filepath.Join(src, "empty.log"), nil)
	res := New(Options{OutputRoot: out}).Copy(context.Background(), entry)

	require.Equal(t, types.StatusCopied, res.Status)
	info, err := os.Stat(res.Destination)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCopy_CollisionsNeverOverwrite(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	c := New(Options{OutputRoot: out})

	var dests []string
	for i := 0; i < 3; i++ {
		entry := writeFile(t, filepath.Join(src, fmt.Sprintf("d%d", i), "b.txt"), []byte(fmt.Sprintf("copy %d", i)))
		res := c.Copy(context.Background(), entry)
		require.Equal(t, types.StatusCopied, res.Status, "err: %v", res.Err)
		dests = append(dests, res.Destination)
	}

	assert.Equal(t, []string{
		filepath.Join(out, "txt", "b.txt"),
		filepath.Join(out, "txt", "b (1).txt"),
		filepath.Join(out, "txt", "b (2).txt"),
	}, dests)

	for i, dst := range dests {
		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("copy %d", i), string(got))
	}
}

func TestCopy_PreexistingDestinationKept(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	existing := filepath.Join(out, "txt", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	entry := writeFile(t, filepath.Join(src, "a.txt"), []byte("new"))
	res := New(Options{OutputRoot: out}).Copy(context.Background(), entry)

	require.Equal(t, types.StatusCopied, res.Status)
	assert.Equal(t, filepath.Join(out, "txt", "a (1).txt"), res.Destination)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestCopy_ConcurrentSameNameGetUniqueDestinations(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	const n = 40
	lim := limiter.New(8)
	var mu sync.Mutex
	var records []types.CopyRecord
	c := New(Options{
		OutputRoot: out,
		Limiter:    lim,
		OnCopy: func(r types.CopyRecord) {
			mu.Lock()
			defer mu.Unlock()
			records = append(records, r)
		},
	})

	entries := make([]types.FileEntry, n)
	for i := range entries {
		entries[i] = writeFile(t, filepath.Join(src, fmt.Sprintf("dir%02d", i), "same.dat"), []byte(fmt.Sprintf("payload-%02d", i)))
	}

	results := make([]types.UnitResult, n)
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Copy(context.Background(), entries[i])
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, res := range results {
		require.Equal(t, types.StatusCopied, res.Status, "err: %v", res.Err)
		assert.False(t, seen[res.Destination], "duplicate destination %s", res.Destination)
		seen[res.Destination] = true

		got, err := os.ReadFile(res.Destination)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("payload-%02d", i), string(got))
	}

	files, err := os.ReadDir(filepath.Join(out, "dat"))
	require.NoError(t, err)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	assert.Len(t, names, n)
	assert.Contains(t, names, "same.dat")
	assert.Contains(t, names, fmt.Sprintf("same (%d).dat", n-1))

	assert.Len(t, records, n)
	assert.LessOrEqual(t, lim.Peak(), int64(8))
	assert.Equal(t, int64(0), lim.Active())
}

func TestCopy_MissingSourceFailsWithoutDestination(t *testing.T) {
	out := t.TempDir()
	logger := &recordingLogger{}
	called := false
	c := New(Options{
		OutputRoot: out,
		Logger:     logger,
		OnCopy:     func(types.CopyRecord) { called = true },
	})

	res := c.Copy(context.Background(), types.NewFileEntry(filepath.Join(t.TempDir(), "gone.txt"), 3))
	assert.Equal(t, types.StatusFailed, res.Status)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
	assert.False(t, called)
	assert.Equal(t, 1, logger.count("error"))

	_, err := os.Stat(filepath.Join(out, "txt"))
	assert.True(t, os.IsNotExist(err), "no bucket should be created for a vanished source")
}

func TestCopy_BucketIsAFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	// A regular file named like the bucket blocks its creation.
	require.NoError(t, os.WriteFile(filepath.Join(out, "csv"), []byte("x"), 0o644))

	entry := writeFile(t, filepath.Join(src, "data.csv"), []byte("a,b"))
	other := writeFile(t, filepath.Join(src, "notes.md"), []byte("# notes"))

	logger := &recordingLogger{}
	c := New(Options{OutputRoot: out, Logger: logger})

	res := c.Copy(context.Background(), entry)
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Error(t, res.Err)

	// Failures are per unit; other buckets keep working.
	res = c.Copy(context.Background(), other)
	assert.Equal(t, types.StatusCopied, res.Status)
	assert.Equal(t, 1, logger.count("error"))
}

func TestCopy_CancelledBeforeAcquireIsSkipped(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	lim := limiter.New(1)
	require.NoError(t, lim.Acquire(context.Background()))
	defer lim.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entry := writeFile(t, filepath.Join(src, "a.txt"), []byte("a"))
	res := New(Options{OutputRoot: out, Limiter: lim}).Copy(ctx, entry)

	assert.Equal(t, types.StatusSkipped, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	_, err := os.Stat(filepath.Join(out, "txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestStream_StopsOnCancel(t *testing.T) {
	c := New(Options{OutputRoot: t.TempDir(), ChunkSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer
	n, err := c.stream(ctx, &dst, bytes.NewReader([]byte("0123456789")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, dst.Len())
}

func TestStream_ChunkedCopy(t *testing.T) {
	c := New(Options{OutputRoot: t.TempDir(), ChunkSize: 3})

	data := []byte("the quick brown fox")
	var dst bytes.Buffer
	n, err := c.stream(context.Background(), &dst, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, dst.Bytes())
}

func TestCopyFile_CancelledLeavesNoDestination(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	entry := writeFile(t, filepath.Join(src, "a.txt"), []byte("alpha"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(Options{OutputRoot: out}).copyFile(ctx, entry)
	assert.Equal(t, types.StatusSkipped, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, res.Destination)

	assert.NoFileExists(t, filepath.Join(out, "txt", "a.txt"))
	_, err := os.Stat(filepath.Join(out, "txt"))
	assert.True(t, os.IsNotExist(err), "no bucket should be created after cancellation")
}

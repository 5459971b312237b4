package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/filesort/pkg/filesort/planner"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

func sampleSort() *types.SortResult {
	return &types.SortResult{
		Source: "/home/user/src",
		Output: "/home/user/dist",
		Outcome: types.Outcome{
			Dirs:     3,
			Copied:   4,
			Skipped:  1,
			Excluded: 2,
			Failed:   1,
			Bytes:    4096,
		},
		Copied: []types.CopyRecord{
			{Source: "/home/user/src/b/notes.txt", Destination: "/home/user/dist/txt/notes (1).txt", Bucket: "txt", Size: 1024},
			{Source: "/home/user/src/a/notes.txt", Destination: "/home/user/dist/txt/notes.txt", Bucket: "txt", Size: 1024},
			{Source: "/home/user/src/todo.txt", Destination: "/home/user/dist/txt/todo.txt", Bucket: "txt", Size: 1024},
			{Source: "/home/user/src/report.pdf", Destination: "/home/user/dist/pdf/report.pdf", Bucket: "pdf", Size: 1024},
		},
		Errors: []types.SortError{
			{Path: "/home/user/src/locked", Error: "permission denied"},
		},
		Elapsed:     1500 * time.Millisecond,
		Concurrency: 64,
		PeakActive:  5,
	}
}

func TestFromSort(t *testing.T) {
	r := FromSort(sampleSort())

	assert.Equal(t, ModeSort, r.Mode)
	assert.Equal(t, "/home/user/src", r.Source)
	assert.Equal(t, "/home/user/dist", r.Output)
	assert.Equal(t, int64(4), r.Stats.Copied)
	assert.Equal(t, int64(3), r.Stats.Dirs)
	assert.Equal(t, 64, r.Stats.Concurrency)
	assert.Len(t, r.Errors, 1)

	require.Len(t, r.Copies, 4)
	assert.Equal(t, "/home/user/dist/pdf/report.pdf", r.Copies[0].Destination, "copies are ordered by destination")
	assert.Equal(t, "1.0 KiB", r.Copies[0].SizeHuman)

	assert.Equal(t, []Bucket{
		{Name: "txt", Files: 3, Bytes: 3072, Renamed: 1},
		{Name: "pdf", Files: 1, Bytes: 1024},
	}, r.Buckets)
}

func TestFromPlan(t *testing.T) {
	p := &planner.PlanResult{
		Source: "/src",
		Output: "/dist",
		Copies: []planner.PlannedCopy{
			{Source: "/src/a.go", Destination: "/dist/go/a.go", Bucket: "go", Size: 10},
		},
		Buckets:  []planner.BucketSummary{{Name: "go", Files: 1, Bytes: 10}},
		Skipped:  []string{"/src/link"},
		Excluded: 3,
		Bytes:    10,
		Elapsed:  time.Second,
	}

	r := FromPlan(p)
	assert.Equal(t, ModePlan, r.Mode)
	assert.Equal(t, int64(1), r.Stats.Copied)
	assert.Equal(t, int64(1), r.Stats.Skipped)
	assert.Equal(t, int64(3), r.Stats.Excluded)
	assert.Equal(t, []Bucket{{Name: "go", Files: 1, Bytes: 10}}, r.Buckets)
}

func TestCopy_Renamed(t *testing.T) {
	assert.False(t, Copy{Source: "/s/a.txt", Destination: "/d/txt/a.txt"}.Renamed())
	assert.True(t, Copy{Source: "/s/a.txt", Destination: "/d/txt/a (1).txt"}.Renamed())
}

type mockFormatter struct {
	err error
}

func (m *mockFormatter) Format(w *bytes.Buffer, _ *Result) error {
	if m.err != nil {
		return m.err
	}
	w.WriteString("mock output")
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register("mock", func() Formatter { return &mockFormatter{} })

	formatter, err := reg.Get("mock")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, formatter.Format(&buf, &Result{}))
	assert.Equal(t, "mock output", buf.String())
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
}

func TestRegistry_Available_Sorted(t *testing.T) {
	reg := NewRegistry()
	factory := func() Formatter { return &mockFormatter{} }

	reg.Register("zeta", factory)
	reg.Register("alpha", factory)
	reg.Register("beta", factory)

	assert.Equal(t, []string{"alpha", "beta", "zeta"}, reg.Available())
}

func TestDefaultRegistry_BuiltinFormatters(t *testing.T) {
	available := Available()
	for _, name := range []string{"pretty", "plain", "json", "jsonl", "yaml", "tsv", "csv", "markdown", "paths", "null", "template"} {
		assert.Contains(t, available, name)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "paths", FromSort(sampleSort())))
	assert.Contains(t, buf.String(), "/home/user/dist/pdf/report.pdf\n")

	assert.Error(t, Write(&buf, "nope", &Result{}))
}

func TestWrite_FormatterError(t *testing.T) {
	Register("failing-test", func() Formatter { return &mockFormatter{err: errors.New("boom")} })

	var buf bytes.Buffer
	err := Write(&buf, "failing-test", &Result{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, buf.Len())
}

package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/filesort/pkg/filesort/filter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

func createTestTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestPlan_ExampleWithoutMutation(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")
	createTestTree(t, src, map[string]string{
		"a.TXT":     "aaaa",
		"b.txt":     "bb",
		"sub/b.txt": "b",
		"noext":     "n",
	})
	require.NoError(t, os.Symlink(filepath.Join(src, "a.TXT"), filepath.Join(src, "link.txt")))

	result, err := Plan(context.Background(), Options{Source: src, Output: out})
	require.NoError(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "plan must not create the output root")

	dests := make(map[string]string)
	for _, c := range result.Copies {
		rel, err := filepath.Rel(result.Output, c.Destination)
		require.NoError(t, err)
		srcRel, err := filepath.Rel(result.Source, c.Source)
		require.NoError(t, err)
		dests[filepath.ToSlash(srcRel)] = filepath.ToSlash(rel)
	}
	assert.Equal(t, map[string]string{
		"a.TXT":     "txt/a.TXT",
		"b.txt":     "txt/b.txt",
		"sub/b.txt": "txt/b (1).txt",
		"noext":     "no_extension/noext",
	}, dests)

	require.Len(t, result.Buckets, 2)
	assert.Equal(t, BucketSummary{Name: "txt", Files: 3, Bytes: 7, Renamed: 1}, result.Buckets[0])
	assert.Equal(t, BucketSummary{Name: types.NoExtensionBucket, Files: 1, Bytes: 1}, result.Buckets[1])
	assert.Equal(t, int64(8), result.Bytes)
	assert.Len(t, result.Skipped, 1)
}

func TestPlan_AccountsForExistingBucketContents(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	createTestTree(t, src, map[string]string{"report.pdf": "new"})
	createTestTree(t, out, map[string]string{"pdf/report.pdf": "old", "pdf/report (1).pdf": "older"})

	result, err := Plan(context.Background(), Options{Source: src, Output: out})
	require.NoError(t, err)

	require.Len(t, result.Copies, 1)
	assert.Equal(t, "report (2).pdf", filepath.Base(result.Copies[0].Destination))
}

func TestPlan_ConfigurationErrors(t *testing.T) {
	src := t.TempDir()

	_, err := Plan(context.Background(), Options{Source: filepath.Join(src, "missing"), Output: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrSourceNotFound)

	_, err = Plan(context.Background(), Options{Source: src, Output: filepath.Join(src, "out")})
	assert.ErrorIs(t, err, types.ErrOutputInsideSource)
}

func TestPlan_Filters(t *testing.T) {
	src := t.TempDir()
	createTestTree(t, src, map[string]string{
		"keep.go":         "package keep",
		"vendor/x/dep.go": "package dep",
		"notes.md":        "notes",
	})

	result, err := Plan(context.Background(), Options{
		Source: src,
		Output: t.TempDir(),
		Filter: []filter.Option{filter.WithExclude("vendor"), filter.WithTypeGroups("code")},
	})
	require.NoError(t, err)

	require.Len(t, result.Copies, 1)
	assert.Equal(t, "keep.go", filepath.Base(result.Copies[0].Source))
	assert.Equal(t, int64(2), result.Excluded)
}

func TestPlan_Cancelled(t *testing.T) {
	src := t.TempDir()
	createTestTree(t, src, map[string]string{"a/b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Plan(ctx, Options{Source: src, Output: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func render(t *testing.T, f Formatter, r *Result) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestPrettyFormatter(t *testing.T) {
	r := FromSort(sampleSort())
	r.RunID = "sort-2024-06-15T10-30-00-abcdef12"

	out := render(t, &PrettyFormatter{}, r)

	assert.Contains(t, out, "/home/user/src")
	assert.Contains(t, out, "/home/user/dist")
	assert.Contains(t, out, "BUCKET")
	assert.Contains(t, out, "txt")
	assert.Contains(t, out, "3.0 KiB")
	assert.Contains(t, out, "1 renamed")
	assert.Contains(t, out, "permission denied")
	assert.Contains(t, out, "history undo "+r.RunID)
	assert.NotContains(t, out, "interrupted")
}

func TestPrettyFormatter_PlanAndEmpty(t *testing.T) {
	out := render(t, &PrettyFormatter{}, &Result{Mode: ModePlan, Source: "/s", Output: "/d"})

	assert.Contains(t, out, "Plan (nothing written)")
	assert.Contains(t, out, "No files to sort")
	assert.Contains(t, out, "Would copy:")
}

func TestPrettyFormatter_InterruptedAndWarnings(t *testing.T) {
	r := FromSort(sampleSort())
	r.Interrupted = true
	r.Warnings = []string{"manifest disabled"}

	out := render(t, &PrettyFormatter{}, r)
	assert.Contains(t, out, "Run interrupted")
	assert.Contains(t, out, "manifest disabled")
}

func TestPrettyFormatter_TruncatesErrors(t *testing.T) {
	r := &Result{Mode: ModeSort}
	for i := 0; i < maxPrettyErrors+3; i++ {
		r.Errors = append(r.Errors, sampleSort().Errors[0])
	}

	out := render(t, &PrettyFormatter{}, r)
	assert.Contains(t, out, "... and 3 more")
}

func TestPlainFormatter(t *testing.T) {
	out := render(t, &PlainFormatter{}, FromSort(sampleSort()))

	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "BUCKET"))
	assert.Contains(t, lines[1], "txt")
	assert.Contains(t, lines[1], "3")
	assert.Contains(t, out, "copied 4 files (4.0 KiB) into 2 buckets, 1 skipped, 2 excluded, 1 failed")
	assert.Contains(t, out, "error: /home/user/src/locked: permission denied")
	assert.NotContains(t, out, "\x1b[", "plain output has no ANSI codes")
}

func TestPlainFormatter_Plan(t *testing.T) {
	out := render(t, &PlainFormatter{}, &Result{Mode: ModePlan, Interrupted: true})
	assert.Contains(t, out, "would copy 0 files")
	assert.Contains(t, out, "interrupted")
}

func TestJSONFormatter(t *testing.T) {
	r := FromSort(sampleSort())
	r.RunID = "sort-x"

	var doc document
	require.NoError(t, json.Unmarshal([]byte(render(t, &JSONFormatter{}, r)), &doc))

	assert.Equal(t, ModeSort, doc.Meta.Mode)
	assert.Equal(t, "sort-x", doc.Meta.RunID)
	assert.Equal(t, int64(4), doc.Stats.Copied)
	assert.Equal(t, "4.0 KiB", doc.Stats.BytesHuman)
	assert.Equal(t, "1.5s", doc.Stats.Duration)
	assert.Len(t, doc.Copies, 4)
	assert.Len(t, doc.Buckets, 2)
	assert.Len(t, doc.Errors, 1)
}

func TestJSONFormatter_EmptyIsArrays(t *testing.T) {
	out := render(t, &JSONFormatter{}, &Result{Mode: ModePlan})
	assert.Contains(t, out, `"copies": []`)
	assert.Contains(t, out, `"buckets": []`)
	assert.NotContains(t, out, `"errors"`)
}

func TestJSONLFormatter(t *testing.T) {
	out := render(t, &JSONLFormatter{}, FromSort(sampleSort()))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		var c Copy
		require.NoError(t, json.Unmarshal([]byte(line), &c))
		assert.NotEmpty(t, c.Destination)
	}
}

func TestYAMLFormatter(t *testing.T) {
	out := render(t, &YAMLFormatter{}, FromSort(sampleSort()))

	var doc document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "/home/user/dist", doc.Meta.Output)
	assert.Equal(t, int64(2), doc.Stats.Excluded)
	assert.Len(t, doc.Copies, 4)
	assert.Contains(t, out, "  source: /home/user/src")
}

func TestTSVFormatter(t *testing.T) {
	out := render(t, &TSVFormatter{}, FromSort(sampleSort()))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "BUCKET\tSIZE\tSOURCE\tDESTINATION", lines[0])
	assert.Equal(t, "pdf\t1024\t/home/user/src/report.pdf\t/home/user/dist/pdf/report.pdf", lines[1])
}

func TestCSVFormatter_QuotesFields(t *testing.T) {
	r := &Result{Copies: []Copy{
		{Bucket: "txt", Size: 3, Source: "/s/a, b.txt", Destination: "/d/txt/a, b.txt"},
	}}

	records, err := csv.NewReader(strings.NewReader(render(t, &CSVFormatter{}, r))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"txt", "3", "/s/a, b.txt", "/d/txt/a, b.txt"}, records[1])
}

func TestMarkdownFormatter(t *testing.T) {
	r := &Result{Mode: ModeSort, Buckets: []Bucket{{Name: "a|b", Files: 2, Bytes: 2048, Renamed: 1}}}

	out := render(t, &MarkdownFormatter{}, r)
	assert.Contains(t, out, "| BUCKET | FILES | SIZE | RENAMED |")
	assert.Contains(t, out, `| a\|b | 2 | 2.0 KiB | 1 |`)
}

func TestPathsAndNullFormatters(t *testing.T) {
	r := FromSort(sampleSort())

	paths := render(t, &PathsFormatter{}, r)
	assert.Equal(t, 4, strings.Count(paths, "\n"))
	assert.True(t, strings.HasPrefix(paths, "/home/user/dist/pdf/report.pdf\n"))

	null := render(t, &NullFormatter{}, r)
	assert.Equal(t, 4, strings.Count(null, "\x00"))
	assert.NotContains(t, null, "\n")
}

func TestTemplateFormatter(t *testing.T) {
	r := FromSort(sampleSort())

	out := render(t, NewTemplateFormatter(defaultTemplate), r)
	assert.Contains(t, out, "pdf\t/home/user/src/report.pdf -> /home/user/dist/pdf/report.pdf\n")

	f := NewTemplateFormatter(`{{.Stats.Copied}} copies, {{bytes .Stats.Bytes}} in {{dur .Stats.Duration}}`)
	assert.Equal(t, "4 copies, 4.0 KiB in 1.5s", render(t, f, r))

	f.SetTemplate(`{{len .Buckets}}`)
	assert.Equal(t, "2", render(t, f, r))
}

func TestTemplateFormatter_InvalidTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := NewTemplateFormatter(`{{.Broken`).Format(&buf, &Result{})
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"250ms", "250ms"},
		{"1.5s", "1.5s"},
		{"125s", "2m 5s"},
		{"3h20m", "3h 20m"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := time.ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatDuration(d))
		})
	}
}

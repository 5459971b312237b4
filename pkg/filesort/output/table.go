package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var copyColumns = []string{"BUCKET", "SIZE", "SOURCE", "DESTINATION"}

// TSVFormatter writes one tab-separated row per copy.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(copyColumns, "\t") + "\n")
	for _, c := range r.Copies {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Bucket, c.Size, c.Source, c.Destination)
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter writes one RFC 4180 row per copy.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(copyColumns); err != nil {
		return err
	}
	for _, c := range r.Copies {
		if err := writer.Write([]string{c.Bucket, strconv.FormatInt(c.Size, 10), c.Source, c.Destination}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter writes the bucket summary as a GitHub-flavored table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| BUCKET | FILES | SIZE | RENAMED |\n")
	w.WriteString("|--------|------:|-----:|--------:|\n")

	for _, b := range r.Buckets {
		fmt.Fprintf(w, "| %s | %d | %s | %d |\n",
			escapeMarkdownPipe(b.Name), b.Files, formatBytes(b.Bytes), b.Renamed)
	}

	fmt.Fprintf(w, "\n%s\n", summaryLine(r))
	return nil
}

// escapeMarkdownPipe escapes pipe characters for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

var _ Formatter = (*MarkdownFormatter)(nil)

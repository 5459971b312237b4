package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// PlainFormatter writes an unstyled bucket table followed by a one-line
// summary, suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "BUCKET\tFILES\tSIZE\tRENAMED"); err != nil {
		return err
	}
	for _, b := range r.Buckets {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", b.Name, b.Files, types.FormatSize(b.Bytes), b.Renamed); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", summaryLine(r))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Path, e.Error)
	}
	if r.Interrupted {
		w.WriteString("interrupted\n")
	}
	return nil
}

// summaryLine describes the counters in one sentence.
func summaryLine(r *Result) string {
	verb := "copied"
	if r.Mode == ModePlan {
		verb = "would copy"
	}
	return fmt.Sprintf("%s %d files (%s) into %d buckets, %d skipped, %d excluded, %d failed",
		verb, r.Stats.Copied, types.FormatSize(r.Stats.Bytes), len(r.Buckets),
		r.Stats.Skipped, r.Stats.Excluded, r.Stats.Failed)
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)

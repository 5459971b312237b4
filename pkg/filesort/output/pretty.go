package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// maxPrettyErrors caps the error block; the rest are counted.
const maxPrettyErrors = 10

// PrettyFormatter renders a styled report with lipgloss: a header box with
// the roots, the bucket table, a footer box with the counters and any
// errors or warnings.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatBuckets(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Errors) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatErrors(r))
	}
	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	title := "Sorted"
	if r.Mode == ModePlan {
		title = "Plan (nothing written)"
	}
	lines = append(lines, styles.title.Render(title))
	lines = append(lines, styles.field("Source:", r.Source, styles.value))
	lines = append(lines, styles.field("Output:", r.Output, styles.value))

	var info []string
	if r.Stats.Dirs > 0 {
		info = append(info, styles.field("Dirs:", r.Stats.Dirs, styles.value))
	}
	if r.Stats.Concurrency > 0 {
		info = append(info, styles.field("Workers:", fmt.Sprintf("%d (peak %d)", r.Stats.Concurrency, r.Stats.PeakActive), styles.value))
	}
	info = append(info, styles.field("Took:", formatDuration(r.Stats.Duration), styles.value))
	lines = append(lines, strings.Join(info, "  "))

	if r.Interrupted {
		lines = append(lines, styles.warn.Bold(true).Render("Run interrupted; output is partial"))
	}

	return styles.header.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatBuckets(r *Result) string {
	if len(r.Buckets) == 0 {
		return styles.dim.Render("  No files to sort\n")
	}

	nameWidth := len("BUCKET")
	for _, b := range r.Buckets {
		if len(b.Name) > nameWidth {
			nameWidth = len(b.Name)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s  %s  %s\n",
		styles.columns.Render(padRight("BUCKET", nameWidth)),
		styles.columns.Render(padLeft("FILES", 7)),
		styles.columns.Render(padLeft("SIZE", 10)))

	for _, b := range r.Buckets {
		row := fmt.Sprintf("  %s  %s  %s",
			styles.value.Render(padRight(b.Name, nameWidth)),
			styles.value.Render(padLeft(fmt.Sprintf("%d", b.Files), 7)),
			styles.size.Render(padLeft(humanize.IBytes(uint64(b.Bytes)), 10)))
		if b.Renamed > 0 {
			row += "  " + styles.dim.Render(fmt.Sprintf("%d renamed", b.Renamed))
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	verb := "Copied:"
	if r.Mode == ModePlan {
		verb = "Would copy:"
	}

	parts := []string{
		styles.field(verb, r.Stats.Copied, styles.value),
		styles.field("Total:", humanize.IBytes(uint64(r.Stats.Bytes)), styles.size),
		styles.field("Skipped:", r.Stats.Skipped, styles.value),
		styles.field("Excluded:", r.Stats.Excluded, styles.value),
	}

	failedStyle := styles.ok
	if r.Stats.Failed > 0 {
		failedStyle = styles.fail
	}
	parts = append(parts, styles.field("Failed:", r.Stats.Failed, failedStyle))

	if r.RunID != "" {
		parts = append(parts, styles.dim.Render("undo: filesort history undo "+r.RunID))
	}

	return styles.footer.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatErrors(r *Result) string {
	var sb strings.Builder
	sb.WriteString(styles.fail.Bold(true).Render("Errors:"))
	sb.WriteString("\n")

	for i, e := range r.Errors {
		if i == maxPrettyErrors {
			sb.WriteString(styles.dim.Render(fmt.Sprintf("  ... and %d more", len(r.Errors)-maxPrettyErrors)))
			sb.WriteString("\n")
			break
		}
		sb.WriteString(styles.fail.Render("  " + e.Path + ": " + e.Error))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(styles.warn.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(styles.warn.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)

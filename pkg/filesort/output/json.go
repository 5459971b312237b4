package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Meta    documentMeta      `json:"meta" yaml:"meta"`
	Stats   documentStats     `json:"stats" yaml:"stats"`
	Buckets []Bucket          `json:"buckets" yaml:"buckets"`
	Copies  []Copy            `json:"copies" yaml:"copies"`
	Errors  []types.SortError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type documentMeta struct {
	Mode        Mode     `json:"mode" yaml:"mode"`
	Source      string   `json:"source" yaml:"source"`
	Output      string   `json:"output" yaml:"output"`
	RunID       string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Interrupted bool     `json:"interrupted" yaml:"interrupted"`
}

type documentStats struct {
	Dirs        int64  `json:"dirs" yaml:"dirs"`
	Copied      int64  `json:"copied" yaml:"copied"`
	Skipped     int64  `json:"skipped" yaml:"skipped"`
	Excluded    int64  `json:"excluded" yaml:"excluded"`
	Failed      int64  `json:"failed" yaml:"failed"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
	BytesHuman  string `json:"bytes_human" yaml:"bytes_human"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Concurrency int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	PeakActive  int64  `json:"peak_active,omitempty" yaml:"peak_active,omitempty"`
}

func buildDocument(r *Result) document {
	copies := r.Copies
	if copies == nil {
		copies = []Copy{}
	}
	buckets := r.Buckets
	if buckets == nil {
		buckets = []Bucket{}
	}

	return document{
		Meta: documentMeta{
			Mode:        r.Mode,
			Source:      r.Source,
			Output:      r.Output,
			RunID:       r.RunID,
			Warnings:    r.Warnings,
			Interrupted: r.Interrupted,
		},
		Stats: documentStats{
			Dirs:        r.Stats.Dirs,
			Copied:      r.Stats.Copied,
			Skipped:     r.Stats.Skipped,
			Excluded:    r.Stats.Excluded,
			Failed:      r.Stats.Failed,
			Bytes:       r.Stats.Bytes,
			BytesHuman:  types.FormatSize(r.Stats.Bytes),
			Duration:    formatDurationString(r.Stats.Duration),
			Concurrency: r.Stats.Concurrency,
			PeakActive:  r.Stats.PeakActive,
		},
		Buckets: buckets,
		Copies:  copies,
		Errors:  r.Errors,
	}
}

// formatDurationString formats a duration for machine-readable output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// JSONFormatter formats output as a single indented JSON object with meta,
// stats, buckets, copies and errors sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per copy, suitable for
// streaming through jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, c := range r.Copies {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Formatter = (*JSONLFormatter)(nil)

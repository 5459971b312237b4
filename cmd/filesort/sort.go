package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/output"
	"github.com/jamesainslie/filesort/pkg/filesort/sorter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// runSort copies the source tree into extension buckets, records the run
// and prints the report. With --dry-run it prints the plan instead.
func (a *app) runSort(cmd *cobra.Command, args []string) error {
	source, err := a.sourceArg(args)
	if err != nil {
		return err
	}
	if err := a.checkFormat(); err != nil {
		return err
	}
	if a.flags.dryRun {
		return a.runPlan(cmd.Context(), source)
	}

	filterOpts, err := a.filterOptions(source)
	if err != nil {
		return err
	}
	chunkSize, err := a.cfg.ChunkBytes()
	if err != nil {
		return err
	}

	progress := newProgressPrinter(a.stderr, a.flags.quiet || a.cfg.Format != "pretty")
	s := sorter.New(sorter.Options{
		Source:      source,
		Output:      a.cfg.Output,
		Concurrency: a.cfg.Concurrency,
		ChunkSize:   chunkSize,
		Filter:      filterOpts,
		Logger:      logging.Get("sorter"),
		OnProgress:  progress.Update,
	})

	result, runErr := s.Run(cmd.Context())
	progress.Finish()
	if result == nil {
		return runErr
	}

	report := output.FromSort(result)
	if id, err := a.recordRun(result); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("run not recorded in history: %v", err))
	} else {
		report.RunID = id
	}

	if err := a.render(report); err != nil {
		return err
	}
	return runErr
}

// recordRun writes a manifest entry for a run that copied anything and
// returns its ID, or "" when history is disabled.
func (a *app) recordRun(result *types.SortResult) (string, error) {
	if a.flags.noManifest || !a.cfg.Manifest.Enabled || len(result.Copied) == 0 {
		return "", nil
	}

	m, err := a.manifest()
	if err != nil {
		return "", err
	}
	if err := m.EnsureDir(); err != nil {
		return "", fmt.Errorf("creating manifest directory: %w", err)
	}

	entry, err := m.LogRun(result)
	if err != nil {
		return "", err
	}
	logging.Get("cli").Debug("run recorded", "id", entry.ID, "files", entry.Summary.TotalFiles)
	return entry.ID, nil
}

// checkFormat rejects an unknown report format before anything is copied.
func (a *app) checkFormat() error {
	if a.flags.template != "" {
		return nil
	}
	if _, err := output.Get(a.cfg.Format); err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(output.Available(), ", "))
	}
	return nil
}

// render writes the report in the configured format. Quiet mode drops the
// human-readable formats.
func (a *app) render(report *output.Result) error {
	if a.flags.template != "" {
		var buf bytes.Buffer
		if err := output.NewTemplateFormatter(a.flags.template).Format(&buf, report); err != nil {
			return fmt.Errorf("rendering template: %w", err)
		}
		_, err := buf.WriteTo(a.stdout)
		return err
	}

	if a.flags.quiet && (a.cfg.Format == "pretty" || a.cfg.Format == "plain") {
		return nil
	}
	return output.Write(a.stdout, a.cfg.Format, report)
}

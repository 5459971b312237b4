package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/manifest"
	"github.com/jamesainslie/filesort/pkg/filesort/trash"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// maxShownFiles caps the file list printed by "history show".
const maxShownFiles = 50

// errAlreadyUndone is returned when a run has an undo entry already.
var errAlreadyUndone = errors.New("run was already undone")

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View recorded runs",
		Long: `View the runs recorded in the history.

Every sort that copies at least one file is recorded with the source and
destination of each copy, so it can be inspected or undone later.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.runHistoryList(limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of entries to show (0=all)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the copies recorded by a run",
		Long:  `Display a recorded run by its ID. A unique prefix of the ID is enough.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runHistoryShow(args[0])
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove entries older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.runHistoryClean()
		},
	}

	var permanent bool
	undoCmd := &cobra.Command{
		Use:   "undo <id>",
		Short: "Remove the copies made by a run",
		Long: `Remove every copy a recorded run made and any bucket folder left empty.
Copies go to the system trash unless --permanent is given. Source files are
never touched. Copies modified since the run are kept. With --dry-run
nothing is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryUndo(cmd, args[0], permanent, a.flags.dryRun)
		},
	}
	undoCmd.Flags().BoolVar(&permanent, "permanent", false, "delete the copies instead of moving them to the trash")

	historyCmd.AddCommand(showCmd, cleanCmd, undoCmd)
	return historyCmd
}

func (a *app) runHistoryList(limit int) error {
	m, err := a.manifest()
	if err != nil {
		return err
	}

	entries, err := m.List(0)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(entries) == 0 {
		a.printInfo("No history entries found.")
		a.printInfo("Run 'filesort [source]' to sort a directory.")
		return nil
	}

	undone := make(map[string]bool)
	for _, e := range entries {
		if e.Operation == manifest.OpUndo {
			undone[e.RunID] = true
		}
	}

	total := len(entries)
	if limit > 0 && total > limit {
		entries = entries[:limit]
	}

	w := a.stdout
	fmt.Fprintf(w, "%-38s  %-5s  %-16s  %7s  %10s\n", "ID", "TYPE", "TIME", "FILES", "SIZE")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, e := range entries {
		mark := ""
		if undone[e.ID] {
			mark = "  (undone)"
		}
		if e.Summary.Interrupted {
			mark += "  (partial)"
		}
		fmt.Fprintf(w, "%-38s  %-5s  %-16s  %7d  %10s%s\n",
			truncateString(e.ID, 38),
			e.Operation,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Summary.TotalFiles,
			types.FormatSize(e.Summary.TotalBytes),
			mark,
		)
	}
	fmt.Fprintln(w, strings.Repeat("-", 84))

	a.printInfo("Showing %d of %d entries. Use 'filesort history show <id>' for details.", len(entries), total)
	return nil
}

func (a *app) runHistoryShow(id string) error {
	m, err := a.manifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(id)
	if err != nil {
		return err
	}

	w := a.stdout
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "Time:       %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:  %s\n", entry.Operation)
	if entry.RunID != "" {
		fmt.Fprintf(w, "Run:        %s\n", entry.RunID)
	}
	fmt.Fprintf(w, "Source:     %s\n", entry.Source)
	fmt.Fprintf(w, "Output:     %s\n", entry.Output)
	fmt.Fprintf(w, "Files:      %d\n", entry.Summary.TotalFiles)
	fmt.Fprintf(w, "Total size: %s\n", types.FormatSize(entry.Summary.TotalBytes))
	if entry.Summary.Failed > 0 {
		fmt.Fprintf(w, "Failed:     %d\n", entry.Summary.Failed)
	}
	if entry.Summary.Interrupted {
		fmt.Fprintln(w, "Run was interrupted; the copies are partial.")
	}

	if entry.Operation == manifest.OpSort {
		undo, err := m.UndoOf(entry.ID)
		if err != nil {
			return err
		}
		if undo != nil {
			fmt.Fprintf(w, "Undone by:  %s\n", undo.ID)
		}
	}

	if len(entry.Files) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s  %-10s  %s\n", "BUCKET", "SIZE", "SOURCE -> DESTINATION")
	shown := min(len(entry.Files), maxShownFiles)
	for _, f := range entry.Files[:shown] {
		fmt.Fprintf(w, "%-10s  %-10s  %s -> %s\n", f.Bucket, types.FormatSize(f.Size), f.Source, f.Destination)
	}
	if len(entry.Files) > shown {
		fmt.Fprintf(w, "... and %d more files\n", len(entry.Files)-shown)
	}
	return nil
}

func (a *app) runHistoryClean() error {
	m, err := a.manifest()
	if err != nil {
		return err
	}

	days := a.cfg.Manifest.RetentionDays
	if days <= 0 {
		a.printInfo("Retention is disabled; nothing to clean.")
		return nil
	}

	removed, err := m.Cleanup(days)
	if err != nil {
		return fmt.Errorf("cleaning history: %w", err)
	}

	logging.Get("manifest").Info("history cleaned", "removed", removed, "retention_days", days)
	a.printInfo("Removed %d entries older than %d days.", removed, days)
	return nil
}

func (a *app) runHistoryUndo(cmd *cobra.Command, id string, permanent, dryRun bool) error {
	m, err := a.manifest()
	if err != nil {
		return err
	}

	run, err := m.Get(id)
	if err != nil {
		return err
	}
	if run.Operation != manifest.OpSort {
		return fmt.Errorf("%s: %w", run.ID, trash.ErrNotSortRun)
	}

	prev, err := m.UndoOf(run.ID)
	if err != nil {
		return err
	}
	if prev != nil {
		return fmt.Errorf("%s: %w by %s", run.ID, errAlreadyUndone, prev.ID)
	}

	remove := trash.MoveToTrash
	if permanent {
		remove = trash.Delete
	}

	logger := logging.Get("undo")
	res, revertErr := trash.Revert(cmd.Context(), run, trash.Options{
		Remove: remove,
		DryRun: dryRun,
		Logger: logger,
	})
	if res == nil {
		return revertErr
	}

	if !dryRun && len(res.Removed) > 0 {
		undo, err := m.LogUndo(run, res.Removed)
		if err != nil {
			logger.Error("recording undo failed", "run", run.ID, "error", err)
			fmt.Fprintf(a.stderr, "Warning: undo not recorded in history: %v\n", err)
		} else {
			logger.Info("undo recorded", "id", undo.ID, "run", run.ID)
		}
	}

	for _, p := range res.Changed {
		fmt.Fprintf(a.stderr, "kept (modified since the run): %s\n", p)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(a.stderr, "error: %s: %s\n", e.Path, e.Error)
	}
	a.printInfo("%s", res.Summary())

	return revertErr
}

// manifest opens the configured history directory.
func (a *app) manifest() (*manifest.Manifest, error) {
	m, err := manifest.New(a.cfg.Manifest.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return m, nil
}

// truncateString truncates s to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

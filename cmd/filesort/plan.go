package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/filesort/pkg/filesort/output"
	"github.com/jamesainslie/filesort/pkg/filesort/planner"
)

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [source]",
		Short: "Preview a sort without writing anything",
		Long: `Walk the source with the same exclusion and selection rules as a real run
and report the folder and name every file would get. Nothing is created,
written or removed. Equivalent to "filesort --dry-run".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.sourceArg(args)
			if err != nil {
				return err
			}
			if err := a.checkFormat(); err != nil {
				return err
			}
			return a.runPlan(cmd.Context(), source)
		},
	}
}

func (a *app) runPlan(ctx context.Context, source string) error {
	filterOpts, err := a.filterOptions(source)
	if err != nil {
		return err
	}

	plan, err := planner.Plan(ctx, planner.Options{
		Source: source,
		Output: a.cfg.Output,
		Filter: filterOpts,
	})
	if err != nil {
		return err
	}

	return a.render(output.FromPlan(plan))
}

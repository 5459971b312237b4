package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/filesort/pkg/filesort/config"
	"github.com/jamesainslie/filesort/pkg/filesort/logging"
)

// rootFlags holds the flags shared by the sort and plan commands.
type rootFlags struct {
	configFile string
	source     string
	dryRun     bool
	quiet      bool
	verbose    bool
	noManifest bool
	template   string

	// Selection
	extensions []string
	typeGroups []string
	minSize    string
	olderThan  string
	newerThan  string
	maxDepth   int
}

// app is the state of one CLI invocation.
type app struct {
	flags  rootFlags
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// configBindings maps config keys to the flags that override them.
var configBindings = map[string]string{
	"output":      "output",
	"concurrency": "concurrency",
	"chunk_size":  "chunk-size",
	"exclude":     "exclude",
	"ignore_file": "ignore-file",
	"format":      "format",
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "filesort [source]",
		Short: "Copy a directory tree into per-extension folders",
		Long: `filesort copies every regular file under a source directory into an
output directory, grouped into one folder per file extension. Source files
are never modified; name clashes inside a folder are resolved by numbering
("report (1).pdf").

Examples:
  filesort -s ~/Downloads                 # sort into ./dist
  filesort -s ~/Downloads -o ~/Sorted     # sort into ~/Sorted
  filesort -s . -e '*.tmp' -e node_modules
  filesort -s ~/Photos --type image --older-than 1y
  filesort plan -s ~/Downloads            # preview, nothing is written
  filesort history                        # list recorded runs
  filesort history undo <id>              # trash the copies of a run`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bootstrap(cmd)
		},
		RunE: a.runSort,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (default: ~/.config/filesort/config.yaml)")
	pf.StringVarP(&a.flags.source, "source", "s", "", "source directory to sort")
	pf.StringP("output", "o", config.DefaultOutput, "output directory")
	pf.IntP("concurrency", "c", config.DefaultConcurrency, "maximum concurrent units (0=auto)")
	pf.String("chunk-size", config.DefaultChunkSize, `copy chunk size (e.g., 256K, 4MiB, "auto")`)
	pf.StringSliceP("exclude", "e", nil, "glob pattern or absolute path to leave out (repeatable)")
	pf.String("ignore-file", "", "gitignore-style file with exclusions")
	pf.StringP("format", "f", config.DefaultFormat, "report format: pretty, plain, json, jsonl, yaml, tsv, csv, markdown, paths, null, template")
	pf.StringVar(&a.flags.template, "template", "", "Go template for the report (implies --format template)")
	pf.BoolVarP(&a.flags.dryRun, "dry-run", "d", false, "preview the copies without writing anything")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "only print errors")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&a.flags.noManifest, "no-manifest", false, "do not record the run in the history")

	pf.StringSliceVar(&a.flags.extensions, "ext", nil, "only copy these extensions (e.g., pdf,docx)")
	pf.StringSliceVar(&a.flags.typeGroups, "type", nil, "only copy these type groups (video, audio, image, archive, document, spreadsheet, slides, code, log)")
	pf.StringVar(&a.flags.minSize, "min-size", "", "only copy files at least this large (e.g., 10M)")
	pf.StringVar(&a.flags.olderThan, "older-than", "", "only copy files modified longer ago (e.g., 30d, 6mo)")
	pf.StringVar(&a.flags.newerThan, "newer-than", "", "only copy files modified more recently (e.g., 7d)")
	pf.IntVar(&a.flags.maxDepth, "max-depth", 0, "only copy files at most this deep (0=unlimited)")

	rootCmd.AddCommand(
		newPlanCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)

	return rootCmd
}

// bootstrap loads the configuration with flag overrides and starts logging.
func (a *app) bootstrap(cmd *cobra.Command) error {
	bindings := make([]config.Binding, 0, len(configBindings))
	for key, name := range configBindings {
		bindings = append(bindings, config.Binding{Key: key, Flag: cmd.Flags().Lookup(name)})
	}

	cfg, err := config.LoadFile(a.flags.configFile, bindings...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := initializeLogging(cfg, a.flags.verbose, a.flags.quiet); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	logging.Get("cli").Debug("configuration loaded", "file", cfg.File, "command", cmd.CommandPath())
	return nil
}

// printInfo prints a message unless quiet mode is enabled.
func (a *app) printInfo(format string, args ...interface{}) {
	if !a.flags.quiet {
		fmt.Fprintf(a.stdout, format+"\n", args...)
	}
}

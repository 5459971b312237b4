package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/filesort/pkg/filesort/config"
	"github.com/jamesainslie/filesort/pkg/filesort/logging"
)

// envOverrides lists the environment variables that override config keys.
var envOverrides = []string{
	"FILESORT_OUTPUT",
	"FILESORT_CONCURRENCY",
	"FILESORT_CHUNK_SIZE",
	"FILESORT_EXCLUDE",
	"FILESORT_IGNORE_FILE",
	"FILESORT_FORMAT",
	"FILESORT_MANIFEST_ENABLED",
	"FILESORT_MANIFEST_PATH",
	"FILESORT_MANIFEST_RETENTION_DAYS",
	"FILESORT_LOGGING_LEVEL",
	"FILESORT_LOGGING_PATH",
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage filesort configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/filesort/config.yaml (if set)
  2. ~/.config/filesort/config.yaml

Environment variables override config file settings using the FILESORT_ prefix:
  FILESORT_OUTPUT=~/Sorted
  FILESORT_CONCURRENCY=16
  FILESORT_CHUNK_SIZE=4MiB

Command-line flags override both.`,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				a.runConfigShow()
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.runConfigInit()
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.runConfigPath()
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Open the configuration file in an editor",
			Long: `Open the configuration file in $VISUAL, $EDITOR or vi.
A default file is created first if none exists.`,
			Args: cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.runConfigEdit()
			},
		},
	)
	return configCmd
}

func (a *app) runConfigShow() {
	cfg := a.cfg
	w := a.stdout

	if cfg.File != "" {
		fmt.Fprintf(w, "Config file: %s\n\n", cfg.File)
	} else {
		fmt.Fprint(w, "Config file: (none found, using defaults)\n\n")
	}

	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "output:                   %s\n", cfg.Output)
	fmt.Fprintf(w, "concurrency:              %d\n", cfg.Concurrency)
	fmt.Fprintf(w, "chunk_size:               %s\n", cfg.ChunkSize)
	fmt.Fprintf(w, "exclude:                  %s\n", strings.Join(cfg.Exclude, ", "))
	fmt.Fprintf(w, "ignore_file:              %s\n", cfg.IgnoreFile)
	fmt.Fprintf(w, "format:                   %s\n", cfg.Format)
	fmt.Fprintf(w, "manifest.enabled:         %t\n", cfg.Manifest.Enabled)
	fmt.Fprintf(w, "manifest.path:            %s\n", cfg.Manifest.Path)
	fmt.Fprintf(w, "manifest.retention_days:  %d\n", cfg.Manifest.RetentionDays)
	fmt.Fprintf(w, "logging.level:            %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "logging.path:             %s\n", cfg.Logging.Path)

	fmt.Fprintln(w, "\nEnvironment Overrides:")
	fmt.Fprintln(w, "----------------------")
	found := false
	for _, name := range envOverrides {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(w, "%s=%s\n", name, val)
			found = true
		}
	}
	if !found {
		fmt.Fprintln(w, "(none)")
	}
}

func (a *app) runConfigInit() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		a.printInfo("Config file already exists: %s", path)
		a.printInfo("Use 'filesort config edit' to modify it.")
		return nil
	}

	path, err = config.WriteDefault()
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	a.printInfo("Created default config file: %s", path)
	return nil
}

func (a *app) runConfigPath() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Get("cli").Debug("config file does not exist, defaults apply", "path", path)
	}
	return nil
}

func (a *app) runConfigEdit() error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	logging.Get("cli").Debug("opening config file", "path", path, "editor", editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = a.stdout
	editorCmd.Stderr = a.stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}
	return nil
}

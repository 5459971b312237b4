package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/filesort/pkg/filesort/filter"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// defaultIgnoreFile is picked up from the source root when no ignore file
// is configured.
const defaultIgnoreFile = ".filesortignore"

var errNoSource = errors.New("no source directory given (use -s or pass it as an argument)")

// sourceArg returns the source from -s or the positional argument.
func (a *app) sourceArg(args []string) (string, error) {
	switch {
	case a.flags.source != "" && len(args) > 0 && args[0] != a.flags.source:
		return "", fmt.Errorf("source given twice: %q and %q", a.flags.source, args[0])
	case a.flags.source != "":
		return a.flags.source, nil
	case len(args) > 0:
		return args[0], nil
	default:
		return "", errNoSource
	}
}

// filterOptions builds the exclusion and selection options for a source.
func (a *app) filterOptions(source string) ([]filter.Option, error) {
	var opts []filter.Option

	if len(a.cfg.Exclude) > 0 {
		opts = append(opts, filter.WithExclude(a.cfg.Exclude...))
	}

	ignoreFile := a.cfg.IgnoreFile
	if ignoreFile == "" {
		candidate := filepath.Join(source, defaultIgnoreFile)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			ignoreFile = candidate
		}
	}
	if ignoreFile != "" {
		opts = append(opts, filter.WithIgnoreFile(ignoreFile))
	}

	if len(a.flags.extensions) > 0 {
		opts = append(opts, filter.WithExtensions(parseCommaSeparated(a.flags.extensions)...))
	}

	if len(a.flags.typeGroups) > 0 {
		groups := parseCommaSeparated(a.flags.typeGroups)
		for _, g := range groups {
			if _, ok := filter.TypeGroups[strings.ToLower(g)]; !ok {
				return nil, fmt.Errorf("unknown type group %q (available: %s)", g, strings.Join(filter.GroupNames(), ", "))
			}
		}
		opts = append(opts, filter.WithTypeGroups(groups...))
	}

	if a.flags.minSize != "" {
		minSize, err := types.ParseSize(a.flags.minSize)
		if err != nil {
			return nil, fmt.Errorf("invalid min-size %q: %w", a.flags.minSize, err)
		}
		opts = append(opts, filter.WithMinSize(minSize))
	}

	if a.flags.olderThan != "" {
		d, err := filter.ParseDuration(a.flags.olderThan)
		if err != nil {
			return nil, fmt.Errorf("invalid older-than %q: %w", a.flags.olderThan, err)
		}
		opts = append(opts, filter.WithOlderThan(d))
	}

	if a.flags.newerThan != "" {
		d, err := filter.ParseDuration(a.flags.newerThan)
		if err != nil {
			return nil, fmt.Errorf("invalid newer-than %q: %w", a.flags.newerThan, err)
		}
		opts = append(opts, filter.WithNewerThan(d))
	}

	if a.flags.maxDepth > 0 {
		opts = append(opts, filter.WithMaxDepth(a.flags.maxDepth))
	}

	return opts, nil
}

// parseCommaSeparated trims each value and drops empty ones. Values may
// themselves hold comma-separated lists.
func parseCommaSeparated(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
	}
	return result
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFatal       = 1
	exitBadSource   = 2
	exitNested      = 3
	exitInterrupted = 130
)

// exitCode maps an error returned by the command tree to an exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, types.ErrSourceNotFound), errors.Is(err, types.ErrSourceNotDirectory):
		return exitBadSource
	case errors.Is(err, types.ErrOutputInsideSource):
		return exitNested
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFatal
	}
}

// reportError prints err, logs it and returns the exit code. Configuration
// errors are logged at error level; anything unexpected is critical.
func reportError(w io.Writer, err error) int {
	code := exitCode(err)
	logger := logging.Get("cli")

	switch code {
	case exitOK:
		return code
	case exitInterrupted:
		logger.Warn("interrupted")
		fmt.Fprintln(w, "Interrupted.")
	case exitFatal:
		logger.Critical("command failed", "error", err)
		fmt.Fprintf(w, "Error: %v\n", err)
	default:
		logger.Error("configuration error", "error", err, "exit_code", code)
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return code
}

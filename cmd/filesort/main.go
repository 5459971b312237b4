// Package main provides the entry point for the filesort CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
)

func main() {
	os.Exit(run())
}

// run executes the command tree and maps its outcome to a process exit code.
// A panic anywhere below is logged as critical and exits with exitFatal.
func run() (code int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			logging.Get("cli").Critical("unhandled panic", "panic", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "Error: internal error: %v\n", r)
			code = exitFatal
		}
		_ = logging.Close()
	}()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	return reportError(os.Stderr, err)
}

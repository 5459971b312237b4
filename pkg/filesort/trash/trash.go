// Package trash removes the copies made by a recorded sort run. Copies are
// moved to the desktop trash where one is available so an undo can itself
// be undone from the file manager.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// commandTimeout bounds each external trash command.
const commandTimeout = 30 * time.Second

// Remover disposes of a single file.
type Remover func(ctx context.Context, path string) error

// MoveToTrash moves a file to the system trash: Finder on macOS, gio or
// trash-put on Linux. When no trash is usable the file is deleted.
func MoveToTrash(ctx context.Context, path string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	var commands [][]string
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, absPath)
		commands = [][]string{{"osascript", "-e", script}}
	case "linux":
		commands = [][]string{{"gio", "trash", absPath}, {"trash-put", absPath}}
	}

	for _, argv := range commands {
		if runTrashCommand(ctx, argv) == nil {
			return nil
		}
	}
	return Delete(ctx, absPath)
}

func runTrashCommand(ctx context.Context, argv []string) error {
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return exec.CommandContext(ctx, bin, argv[1:]...).Run()
}

// Delete permanently removes a file.
func Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}

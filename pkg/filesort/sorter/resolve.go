package sorter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// Resolve validates the source directory and resolves both roots to
// canonical absolute paths. It never modifies the filesystem.
//
// The output root may not exist yet; it is resolved through its deepest
// existing ancestor so a symlinked parent is still seen through.
func Resolve(source, output string) (string, string, error) {
	if output == "" {
		output = DefaultOutput
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("resolving source: %w", err)
	}

	info, err := os.Stat(absSource)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("%w: %s", types.ErrSourceNotFound, absSource)
		}
		return "", "", fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s", types.ErrSourceNotDirectory, absSource)
	}

	src, err := filepath.EvalSymlinks(absSource)
	if err != nil {
		return "", "", fmt.Errorf("resolving source: %w", err)
	}

	out, err := resolveOutput(output)
	if err != nil {
		return "", "", err
	}

	if Within(out, src) {
		return "", "", fmt.Errorf("%w: %s is inside %s", types.ErrOutputInsideSource, out, src)
	}

	return src, out, nil
}

// resolveOutput resolves symlinks in the longest existing prefix of path.
func resolveOutput(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving output: %w", err)
	}

	dir := abs
	rest := ""
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolving output: %w", err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}

// Within reports whether path is root or lies below it.
func Within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

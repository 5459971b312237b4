package filter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	gitignore "github.com/monochromegane/go-gitignore"
)

// Filter holds exclusion and selection criteria for one source tree.
// A nil *Filter excludes nothing and selects everything.
type Filter struct {
	// Root is the resolved source root. Relative patterns and the ignore
	// file are evaluated against it.
	Root string

	// Exclude contains glob patterns or path prefixes. Matching entries are
	// skipped entirely; matching directories are not descended into.
	Exclude []string

	// IgnoreFile is the path to a gitignore-style file. Empty disables it.
	IgnoreFile string

	// Extensions contains file extensions to copy (e.g., ".mp4", ".mkv").
	// If non-empty, files with other extensions are left alone.
	Extensions []string

	// MinSize is the minimum file size in bytes. Files smaller are left alone.
	MinSize int64

	// OlderThan leaves alone files modified more recently than this duration ago.
	OlderThan time.Duration

	// NewerThan leaves alone files modified longer ago than this duration.
	NewerThan time.Duration

	// MaxDepth limits how deep below the root files are copied.
	// 0 means unlimited.
	MaxDepth int

	globs  []glob.Glob
	ignore gitignore.IgnoreMatcher
	now    time.Time
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a Filter for the source root with the given options.
// Exclusion patterns are compiled and the ignore file is loaded up front,
// so an invalid pattern or unreadable ignore file fails the run before it
// starts.
func New(root string, opts ...Option) (*Filter, error) {
	f := &Filter{Root: filepath.Clean(root), now: time.Now()}
	for _, opt := range opts {
		opt(f)
	}

	for _, pattern := range f.Exclude {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
		}
		f.globs = append(f.globs, g)
	}

	if f.IgnoreFile != "" {
		matcher, err := gitignore.NewGitIgnore(f.IgnoreFile, f.Root)
		if err != nil {
			return nil, fmt.Errorf("loading ignore file: %w", err)
		}
		f.ignore = matcher
	}

	return f, nil
}

// WithExclude sets the exclusion patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithIgnoreFile sets the gitignore-style ignore file.
func WithIgnoreFile(path string) Option {
	return func(f *Filter) {
		f.IgnoreFile = path
	}
}

// WithExtensions sets the file extensions to copy.
// Extensions are normalized: lowercase and prefixed with "." if missing.
func WithExtensions(extensions ...string) Option {
	return func(f *Filter) {
		f.Extensions = append(f.Extensions, normalizeExtensions(extensions)...)
	}
}

// WithTypeGroups adds the extensions of the named type groups.
// Unknown group names are silently ignored.
func WithTypeGroups(groups ...string) Option {
	return func(f *Filter) {
		for _, group := range groups {
			if exts, ok := TypeGroups[strings.ToLower(group)]; ok {
				f.Extensions = append(f.Extensions, normalizeExtensions(exts)...)
			}
		}
	}
}

// WithMinSize sets the minimum file size in bytes.
// If minSize < 0, it is set to 0.
func WithMinSize(minSize int64) Option {
	return func(f *Filter) {
		if minSize < 0 {
			minSize = 0
		}
		f.MinSize = minSize
	}
}

// WithOlderThan sets the minimum age of files to copy.
func WithOlderThan(d time.Duration) Option {
	return func(f *Filter) {
		f.OlderThan = d
	}
}

// WithNewerThan sets the maximum age of files to copy.
func WithNewerThan(d time.Duration) Option {
	return func(f *Filter) {
		f.NewerThan = d
	}
}

// WithMaxDepth sets the maximum depth of copied files.
// Negative values are set to 0 (unlimited).
func WithMaxDepth(depth int) Option {
	return func(f *Filter) {
		if depth < 0 {
			depth = 0
		}
		f.MaxDepth = depth
	}
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

// Excluded reports whether an entry is pruned from the traversal. The path
// must be absolute and inside Root.
func (f *Filter) Excluded(path string, isDir bool) bool {
	if f == nil {
		return false
	}
	if f.ignore != nil && f.ignore.Match(path, isDir) {
		return true
	}
	for _, pattern := range f.Exclude {
		if matchesPrefix(path, pattern) {
			return true
		}
	}
	if len(f.globs) == 0 {
		return false
	}

	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	rel := ""
	if r, err := filepath.Rel(f.Root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = filepath.ToSlash(r)
	}
	for _, g := range f.globs {
		if g.Match(base) || g.Match(slashed) || (rel != "" && g.Match(rel)) {
			return true
		}
	}
	return false
}

// matchesPrefix reports whether path is pattern or lies below it.
func matchesPrefix(path, pattern string) bool {
	if pattern == "" || !filepath.IsAbs(pattern) {
		return false
	}
	pattern = filepath.Clean(pattern)
	return path == pattern || strings.HasPrefix(path, pattern+string(filepath.Separator))
}

// Descend reports whether a directory at the given depth is traversed.
// Directories at MaxDepth hold no files that could be selected.
func (f *Filter) Descend(depth int) bool {
	return f == nil || f.MaxDepth <= 0 || depth < f.MaxDepth
}

// Match reports whether a regular file meets every selection criterion.
func (f *Filter) Match(fi FileInfo) bool {
	if f == nil {
		return true
	}
	if f.MinSize > 0 && fi.Size < f.MinSize {
		return false
	}
	if !f.matchExtension(fi) {
		return false
	}
	if f.MaxDepth > 0 && fi.Depth > f.MaxDepth {
		return false
	}
	return f.matchAge(fi)
}

func (f *Filter) matchExtension(fi FileInfo) bool {
	if len(f.Extensions) == 0 {
		return true
	}
	ext := "." + fi.Ext
	for _, e := range f.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (f *Filter) matchAge(fi FileInfo) bool {
	if f.OlderThan > 0 && fi.ModTime.After(f.now.Add(-f.OlderThan)) {
		return false
	}
	if f.NewerThan > 0 && fi.ModTime.Before(f.now.Add(-f.NewerThan)) {
		return false
	}
	return true
}

// Selective reports whether any selection criterion is set.
func (f *Filter) Selective() bool {
	return f != nil && (len(f.Extensions) > 0 || f.MinSize > 0 || f.OlderThan > 0 || f.NewerThan > 0 || f.MaxDepth > 0)
}

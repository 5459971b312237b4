// Package filter decides which source entries a filesort run leaves alone.
// Exclusion patterns and an optional gitignore-style ignore file prune
// entries from the traversal; selection criteria (extensions, size, age,
// depth) narrow down which regular files are copied.
package filter

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidPattern indicates that an exclusion pattern could not be compiled.
var ErrInvalidPattern = errors.New("invalid exclusion pattern")

// TypeGroups maps a group name to the buckets it selects. Entries are bucket
// names, so they carry no leading dot.
var TypeGroups = map[string][]string{
	"video":       strings.Fields("mp4 mkv avi mov wmv flv webm m4v mpeg mpg"),
	"audio":       strings.Fields("mp3 flac wav aac ogg wma m4a opus aiff alac"),
	"image":       strings.Fields("jpg jpeg png gif bmp tiff tif webp svg ico heic heif raw"),
	"archive":     strings.Fields("zip tar gz bz2 xz 7z rar tgz tbz2 zst"),
	"document":    strings.Fields("pdf doc docx odt rtf txt md epub pages"),
	"spreadsheet": strings.Fields("xls xlsx ods csv tsv numbers"),
	"slides":      strings.Fields("ppt pptx odp key"),
	"code":        strings.Fields("go py js ts java c cpp h hpp rs rb php swift kt scala cs sh bash zsh fish"),
	"log":         strings.Fields("log logs"),
}

// GroupNames returns the type group names in sorted order.
func GroupNames() []string {
	names := make([]string, 0, len(TypeGroups))
	for name := range TypeGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileInfo contains the metadata selection criteria are evaluated against.
type FileInfo struct {
	// Path is the absolute path to the file.
	Path string

	// Ext is the lower-cased extension without the leading dot, as used for
	// bucket names. Empty for files without an extension.
	Ext string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time of the file.
	ModTime time.Time

	// Depth is the number of path components below the source root;
	// a file directly inside the root has depth 1.
	Depth int
}

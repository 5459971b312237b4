// Package config loads filesort settings from the config file and
// FILESORT_ environment variables.
package config

// Default configuration values.
const (
	// DefaultOutput is the output root, relative to the working directory.
	DefaultOutput = "dist"

	// DefaultConcurrency is the limiter capacity. 0 selects it from the
	// detected CPU count.
	DefaultConcurrency = 64

	// DefaultChunkSize is the streaming chunk size. "auto" sizes it from
	// available memory.
	DefaultChunkSize = "1MiB"

	// DefaultFormat is the report format.
	DefaultFormat = "pretty"

	// DefaultRetentionDays is the default number of days to retain manifests.
	DefaultRetentionDays = 90

	appName = "filesort"
)

// DefaultExclusions is empty: every entry of the source is sorted unless the
// user excludes it.
var DefaultExclusions = []string{}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ManifestConfig configures the run history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Output      string         `mapstructure:"output"`
	Concurrency int            `mapstructure:"concurrency"`
	ChunkSize   string         `mapstructure:"chunk_size"`
	Exclude     []string       `mapstructure:"exclude"`
	IgnoreFile  string         `mapstructure:"ignore_file"`
	Format      string         `mapstructure:"format"`
	Manifest    ManifestConfig `mapstructure:"manifest"`
	Logging     LoggingConfig  `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ChunkBytes returns the chunk size in bytes, or 0 when it should be
// sized automatically.
func (c *Config) ChunkBytes() (int, error) {
	s := strings.TrimSpace(c.ChunkSize)
	if s == "" || strings.EqualFold(s, "auto") {
		return 0, nil
	}
	n, err := types.ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("chunk_size: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("chunk_size: %w: must be positive", types.ErrInvalidSize)
	}
	return int(n), nil
}

// Load reads the default config file locations and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/filesort/config.yaml
//   - $HOME/.config/filesort/config.yaml
//
// Environment variables are prefixed with FILESORT_ (e.g., FILESORT_CONCURRENCY).
func Load() (*Config, error) {
	return LoadFile("")
}

// Binding ties a command-line flag to a config key. A flag given on the
// command line wins over the environment and the config file.
type Binding struct {
	Key  string
	Flag *pflag.Flag
}

// LoadFile is Load with an explicit config file and flag bindings. An
// explicit file must exist; an empty path searches the default locations.
func LoadFile(path string, bindings ...Binding) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, appName))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", appName))
	}

	v.SetEnvPrefix("FILESORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	for _, b := range bindings {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", b.Flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Manifest.Path, err = ExpandPath(cfg.Manifest.Path); err != nil {
		return nil, err
	}
	if cfg.IgnoreFile, err = ExpandPath(cfg.IgnoreFile); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("ignore_file", "")
	v.SetDefault("format", DefaultFormat)

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)
	v.SetDefault("manifest.path", filepath.Join(configDirFrom(homeDir), ".manifest"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"sorter": "info",
		"copier": "info",
	})
}

func configDirFrom(homeDir string) string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName)
	}
	return filepath.Join(homeDir, ".config", appName)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return configDirFrom(homeDir), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ManifestDir returns the default manifest directory path.
func ManifestDir() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ".manifest"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	manifestDir, err := ManifestDir()
	if err != nil {
		return "", err
	}

	defaultConfig := fmt.Sprintf(`# filesort configuration

# Output root, created if missing. Relative paths resolve against the
# working directory.
output: %s

# Maximum number of directories and files processed at once.
# 0 picks a value from the CPU count.
concurrency: %d

# Size of each streamed read/write, or "auto".
chunk_size: %s

# Glob patterns or absolute path prefixes to leave out, for example
# [".git", "node_modules"]. Nothing is excluded by default.
exclude: []

# gitignore-style file with more exclusions.
ignore_file: ""

# Report format: pretty, plain, json, yaml, tsv, csv, markdown, paths
format: %s

# Run history used by "filesort history" and undo
manifest:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/filesort/filesort.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    sorter: info
    copier: info
`, DefaultOutput, DefaultConcurrency, DefaultChunkSize, DefaultFormat, manifestDir, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/filesort/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), appName+".log")
}

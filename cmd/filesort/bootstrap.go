package main

import (
	"github.com/jamesainslie/filesort/pkg/filesort/config"
	"github.com/jamesainslie/filesort/pkg/filesort/logging"
	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// initializeLogging starts the file logger from the configuration. Console
// output goes to stderr: warnings by default, debug with -v, errors only
// with -q.
func initializeLogging(cfg *config.Config, verbose, quiet bool) error {
	return logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel(verbose, quiet),
	})
}

func consoleLevel(verbose, quiet bool) string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	default:
		return "warn"
	}
}

// parseRotationConfig converts the config rotation settings. An empty or
// invalid max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := logging.DefaultRotationConfig().MaxSize
	if rc.MaxSize != "" {
		if n, err := types.ParseSize(rc.MaxSize); err == nil && n > 0 {
			maxSize = n
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

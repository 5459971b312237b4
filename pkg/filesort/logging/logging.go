// Package logging provides component loggers for filesort. Records go to a
// rotating log file and, optionally, are mirrored to the console at a
// separate level.
//
//	if err := logging.Init(logging.Config{Level: "info", ConsoleLevel: "warn"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("sorter").Info("copied", "source", src, "destination", dst)
//
// Library packages never call Get themselves; the CLI injects a component
// logger and callers that pass nothing get Discard.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a record severity.
type Level int

// Levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levels = []struct {
	name  string
	charm log.Level
}{
	LevelDebug: {"debug", log.DebugLevel},
	LevelInfo:  {"info", log.InfoLevel},
	LevelWarn:  {"warn", log.WarnLevel},
	LevelError: {"error", log.ErrorLevel},
}

func (l Level) valid() bool {
	return l >= LevelDebug && int(l) < len(levels)
}

// String returns the level name, or "unknown".
func (l Level) String() string {
	if !l.valid() {
		return "unknown"
	}
	return levels[l].name
}

func (l Level) charm() log.Level {
	if !l.valid() {
		return log.InfoLevel
	}
	return levels[l].charm
}

// ErrInvalidLevel is returned for a level name ParseLevel does not know.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name case-insensitively. "warning" is accepted
// as an alias of "warn".
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for i, lvl := range levels {
		if lvl.name == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level applies to components without an entry in Components.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components maps component names to their own levels.
	Components map[string]string

	// ConsoleLevel mirrors records at or above this level to Console.
	// Empty disables the mirror.
	ConsoleLevel string

	// Console receives mirrored records. Nil means os.Stderr.
	Console io.Writer
}

// Logger is a component logger. Every record is written to each of its
// sinks, each filtering at its own level.
type Logger struct {
	sinks     []*log.Logger
	component string
}

// Debug logs a debug record.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args) }

// Info logs an info record.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(LevelInfo, msg, args) }

// Warn logs a warning record.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(LevelWarn, msg, args) }

// Error logs an error record.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args) }

// Critical logs an unrecoverable failure at error level, tagged
// severity=critical so it stands apart from per-entry failures.
func (l *Logger) Critical(msg string, args ...interface{}) {
	l.emit(LevelError, msg, append([]interface{}{"severity", "critical"}, args...))
}

// Component returns the name the logger was created for.
func (l *Logger) Component() string {
	return l.component
}

// With returns a logger that adds the key/value pairs to every record.
func (l *Logger) With(args ...interface{}) *Logger {
	sinks := make([]*log.Logger, len(l.sinks))
	for i, s := range l.sinks {
		sinks[i] = s.With(args...)
	}
	return &Logger{sinks: sinks, component: l.component}
}

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	for _, s := range l.sinks {
		s.Log(level.charm(), msg, args...)
	}
}

// Discard returns a logger without sinks.
func Discard() *Logger {
	return &Logger{}
}

// New returns a standalone logger writing to w. It is not registered with
// Get and is unaffected by Init and Close.
func New(w io.Writer, component string, level Level) *Logger {
	return &Logger{
		sinks:     []*log.Logger{log.NewWithOptions(w, log.Options{Level: level.charm(), Prefix: component})},
		component: component,
	}
}

// registry holds the active destinations and every logger handed out by
// Get. Loggers are updated in place so references taken before Init or
// after Close follow the current destinations.
type registry struct {
	mu         sync.RWMutex
	file       *RotatingWriter
	level      Level
	components map[string]Level
	console    io.Writer
	consoleLvl Level
	loggers    map[string]*Logger
}

var reg = &registry{loggers: make(map[string]*Logger)}

// Init opens the log file and applies the configuration. Calling Init again
// replaces the previous configuration. Until Init succeeds, loggers from Get
// discard their records.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for name, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", name, err)
		}
		components[name] = parsed
	}

	var console io.Writer
	var consoleLvl Level
	if cfg.ConsoleLevel != "" {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = cfg.Console
		if console == nil {
			console = os.Stderr
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	file, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	previous := reg.file
	reg.file = file
	reg.level = level
	reg.components = components
	reg.console = console
	reg.consoleLvl = consoleLvl
	reg.rebuild()

	if previous != nil {
		if err := previous.Close(); err != nil {
			return fmt.Errorf("closing previous log writer: %w", err)
		}
	}
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[component]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if logger, ok := reg.loggers[component]; ok {
		return logger
	}
	logger = reg.build(component)
	reg.loggers[component] = logger
	return logger
}

// Close closes the log file. Loggers from Get discard records until the
// next Init.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	file := reg.file
	reg.file = nil
	reg.components = nil
	reg.console = nil
	reg.rebuild()

	if file == nil {
		return nil
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// rebuild must be called with mu held.
func (r *registry) rebuild() {
	for component, logger := range r.loggers {
		*logger = *r.build(component)
	}
}

// build must be called with mu held.
func (r *registry) build(component string) *Logger {
	logger := &Logger{component: component}
	if r.file == nil {
		return logger
	}

	level := r.level
	if lvl, ok := r.components[component]; ok {
		level = lvl
	}
	logger.sinks = append(logger.sinks, log.NewWithOptions(r.file, log.Options{
		Level:           level.charm(),
		Prefix:          component,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}))

	if r.console != nil {
		logger.sinks = append(logger.sinks, log.NewWithOptions(r.console, log.Options{
			Level:           r.consoleLvl.charm(),
			Prefix:          component,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		}))
	}
	return logger
}

// DefaultLogPath returns $XDG_STATE_HOME/filesort/filesort.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "filesort", "filesort.log")
}

// DefaultConfig returns info-level file logging with default rotation and
// no console mirror.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

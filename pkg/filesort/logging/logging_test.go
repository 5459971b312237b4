package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jamesainslie/filesort/pkg/filesort/logging"
)

// Tests touching Init, Get or Close share package state and must not run in
// parallel.

// initLog initializes logging into a fresh file and returns its path.
// Logging is closed when the test ends.
func initLog(t *testing.T, cfg logging.Config) string {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "filesort.log")
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })
	return cfg.Path
}

// closeAndRead closes logging and returns the log file contents.
func closeAndRead(t *testing.T, path string) string {
	t.Helper()
	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	return string(data)
}

func TestInitRejectsBadConfig(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     logging.Config
		wantLvl bool
	}{
		{"unknown level", logging.Config{Level: "loud"}, true},
		{"unknown component level", logging.Config{Level: "info", Components: map[string]string{"copier": "chatty"}}, true},
		{"unknown console level", logging.Config{Level: "info", ConsoleLevel: "all"}, true},
		{"log directory is a file", logging.Config{Level: "info", Path: filepath.Join(blocker, "x.log")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.Path == "" {
				tt.cfg.Path = filepath.Join(dir, "x.log")
			}
			err := logging.Init(tt.cfg)
			if err == nil {
				_ = logging.Close()
				t.Fatal("Init() succeeded, want error")
			}
			if got := errors.Is(err, logging.ErrInvalidLevel); got != tt.wantLvl {
				t.Errorf("errors.Is(err, ErrInvalidLevel) = %v, want %v (err: %v)", got, tt.wantLvl, err)
			}
		})
	}
}

func TestLevelsAndComponentOverrides(t *testing.T) {
	path := initLog(t, logging.Config{
		Level:      "warn",
		Components: map[string]string{"copier": "debug", "planner": "error"},
	})

	sorter := logging.Get("sorter")
	sorter.Info("sorter info")
	sorter.Warn("sorter warn")

	copier := logging.Get("copier")
	copier.Debug("copier debug")

	planner := logging.Get("planner")
	planner.Warn("planner warn")
	planner.Error("planner error")

	log := closeAndRead(t, path)
	for msg, want := range map[string]bool{
		"sorter info":   false,
		"sorter warn":   true,
		"copier debug":  true,
		"planner warn":  false,
		"planner error": true,
	} {
		if got := strings.Contains(log, msg); got != want {
			t.Errorf("log contains %q = %v, want %v\n%s", msg, got, want, log)
		}
	}
}

func TestRecordsCarryComponentAndFields(t *testing.T) {
	path := initLog(t, logging.Config{Level: "info"})

	logging.Get("copier").With("run", "abc").Info("copied", "destination", "/out/txt/a.txt")

	log := closeAndRead(t, path)
	for _, want := range []string{"copier", "copied", "run=abc", "destination=/out/txt/a.txt"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
}

func TestConsoleMirror(t *testing.T) {
	var console bytes.Buffer
	path := initLog(t, logging.Config{
		Level:        "debug",
		ConsoleLevel: "warn",
		Console:      &console,
	})

	logger := logging.Get("undo")
	logger.Info("file only")
	logger.Warn("both places")

	log := closeAndRead(t, path)
	if !strings.Contains(log, "file only") || !strings.Contains(log, "both places") {
		t.Errorf("file log incomplete:\n%s", log)
	}
	if strings.Contains(console.String(), "file only") {
		t.Errorf("console should filter below warn, got:\n%s", console.String())
	}
	if !strings.Contains(console.String(), "both places") {
		t.Errorf("console missing warning, got:\n%s", console.String())
	}
}

func TestGetReturnsSameLoggerAcrossInitAndClose(t *testing.T) {
	early := logging.Get("early")
	early.Info("before init")

	path := initLog(t, logging.Config{Level: "info"})
	if logging.Get("early") != early {
		t.Fatal("Get() returned a different logger for the same component")
	}
	early.Info("after init")
	log := closeAndRead(t, path)

	early.Info("after close")
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(log, "before init") {
		t.Error("record logged before Init was written")
	}
	if !strings.Contains(log, "after init") {
		t.Error("logger taken before Init did not follow Init")
	}
	if strings.Contains(string(after), "after close") {
		t.Error("record logged after Close was written")
	}
}

func TestReinitSwitchesFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	initLog(t, logging.Config{Level: "info", Path: first})
	logger := logging.Get("cli")
	logger.Info("one")

	initLog(t, logging.Config{Level: "info", Path: second})
	logger.Info("two")
	secondLog := closeAndRead(t, second)

	firstLog, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(firstLog), "one") || strings.Contains(string(firstLog), "two") {
		t.Errorf("first log = %q", firstLog)
	}
	if !strings.Contains(secondLog, "two") || strings.Contains(secondLog, "one") {
		t.Errorf("second log = %q", secondLog)
	}
}

func TestConcurrentLoggingKeepsLinesWhole(t *testing.T) {
	path := initLog(t, logging.Config{Level: "debug"})

	const workers, each = 8, 125
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			logger := logging.Get("copier")
			for i := 0; i < each; i++ {
				logger.Info("copied", "worker", w, "index", i)
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(closeAndRead(t, path)), "\n")
	if len(lines) != workers*each {
		t.Fatalf("got %d lines, want %d", len(lines), workers*each)
	}
	for _, line := range lines {
		if !strings.Contains(line, "copied") || !strings.Contains(line, "index=") {
			t.Fatalf("malformed line %q", line)
		}
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	path := logging.DefaultLogPath()
	if filepath.Base(path) != "filesort.log" || filepath.Base(filepath.Dir(path)) != "filesort" {
		t.Errorf("DefaultLogPath() = %q", path)
	}

	cfg := logging.DefaultConfig()
	if cfg.Level != "info" || cfg.Path != path || cfg.ConsoleLevel != "" {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.Rotation != logging.DefaultRotationConfig() {
		t.Errorf("DefaultConfig().Rotation = %+v", cfg.Rotation)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"Warning", logging.LevelWarn, false},
		{" error ", logging.LevelError, false},
		{"", logging.LevelInfo, true},
		{"fatal", logging.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, lvl := range []logging.Level{logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError} {
		if back, err := logging.ParseLevel(lvl.String()); err != nil || back != lvl {
			t.Errorf("round trip of %v = %v, %v", lvl, back, err)
		}
	}
	if got := logging.Level(-1).String(); got != "unknown" {
		t.Errorf("Level(-1).String() = %q", got)
	}
}

func TestStandaloneLoggers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New(&buf, "cli", logging.LevelWarn).With("run", "r1")
	logger.Info("filtered")
	logger.Critical("panic recovered", "error", "boom")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("info record passed a warn logger: %s", out)
	}
	for _, want := range []string{"panic recovered", "severity=critical", "run=r1", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if logger.Component() != "cli" {
		t.Errorf("Component() = %q", logger.Component())
	}

	discard := logging.Discard()
	discard.Error("nowhere")
	discard.With("k", "v").Critical("nowhere")
	if discard.Component() != "" {
		t.Errorf("Discard().Component() = %q", discard.Component())
	}
}

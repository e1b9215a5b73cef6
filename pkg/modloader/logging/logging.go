// Package logging writes the mod loader's log file and publishes the status
// messages produced by registry, patch and update operations.
//
// Every modloader invocation appends to the same file, so concurrent runs
// (a `mods list --watch` next to a `mods enable`) share it through an flock.
// Loggers returned by Get are handles resolved at write time; they may be
// created before Init and kept across Init and Close.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("registry").Info("loaded mods", "count", 12, "active", 3)
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a log severity.
type Level = log.Level

// Levels accepted in configuration.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel is returned for level names other than debug, info, warn
// and error.
var ErrInvalidLevel = log.ErrInvalidLevel

// ParseLevel parses a configured level name. "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	if strings.EqualFold(s, "warning") {
		return LevelWarn, nil
	}
	lvl, err := log.ParseLevel(s)
	if err != nil || lvl > LevelError {
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return lvl, nil
}

// Config configures the logging system.
type Config struct {
	// Level applies to components without an entry in Components.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components maps component names such as "registry" or "patch" to levels.
	Components map[string]string

	// ConsoleLevel mirrors entries at or above it to stderr. Empty disables it.
	ConsoleLevel string
}

// DefaultLogPath returns $XDG_STATE_HOME/modloader/modloader.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "modloader", "modloader.log")
}

// Logger logs for one component, optionally with fixed key-value pairs.
type Logger struct {
	component string
	fields    []any
}

// Get returns a logger for component.
func Get(component string) *Logger {
	return &Logger{component: component}
}

// With returns a logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		component: l.component,
		fields:    append(slices.Clone(l.fields), args...),
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

func (l *Logger) log(level Level, msg string, args []any) {
	if len(l.fields) > 0 {
		args = append(slices.Clone(l.fields), args...)
	}
	current.write(l.component, level, msg, args)
}

// sink holds what Init configured. Before Init nothing is written anywhere,
// but entries are still published to subscribers.
type sink struct {
	mu      sync.RWMutex
	writer  *RotatingWriter
	file    *log.Logger
	console *log.Logger
	level   Level
	levels  map[string]Level
}

var current = &sink{level: LevelInfo}

func (s *sink) threshold(component string) Level {
	if lvl, ok := s.levels[component]; ok {
		return lvl
	}
	return s.level
}

func (s *sink) write(component string, level Level, msg string, args []any) {
	s.mu.RLock()
	threshold := s.threshold(component)
	file, console := s.file, s.console
	s.mu.RUnlock()

	if file != nil && level >= threshold {
		file.WithPrefix(component).Log(level, msg, args...)
	}
	if console != nil && level >= console.GetLevel() {
		console.WithPrefix(component).Log(level, msg, args...)
	}
	if level >= threshold {
		publish(LogEntry{
			Time:      time.Now(),
			Level:     level,
			Component: component,
			Message:   msg,
		})
	}
}

// Init opens the log file and applies cfg. Calling it again replaces the
// previous configuration.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	levels := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("log level for %s: %w", comp, err)
		}
		levels[comp] = lvl
	}

	var console *log.Logger
	if cfg.ConsoleLevel != "" {
		lvl, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("console log level: %w", err)
		}
		console = newCharmLogger(os.Stderr, lvl, "15:04:05")
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}

	current.mu.Lock()
	old := current.writer
	current.writer = writer
	// Levels are filtered per component before the entry reaches charm.
	current.file = newCharmLogger(writer, LevelDebug, time.RFC3339)
	current.console = console
	current.level = level
	current.levels = levels
	current.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

func newCharmLogger(w io.Writer, level Level, timeFormat string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
	})
}

// Close closes the log file and every subscription. Loggers keep working
// and write nowhere until the next Init.
func Close() error {
	closeSubscribers()

	current.mu.Lock()
	writer := current.writer
	current.writer, current.file, current.console = nil, nil, nil
	current.level, current.levels = LevelInfo, nil
	current.mu.Unlock()

	if writer == nil {
		return nil
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing log: %w", err)
	}
	return nil
}

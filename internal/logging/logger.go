// Package logging provides config-driven categorized file-based logging
// for roster. Logs are written to the config directory under logs/ with
// one file per category. Logging is controlled by debug_mode in
// config.json - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, CLI wiring
	CategoryAPI    Category = "api"    // HTTP calls to the signup service
	CategorySync   Category = "sync"   // Full-state refresh passes
	CategoryMutate Category = "mutate" // Directory deltas, optimistic patches
	CategoryView   Category = "view"   // View tree rebuilds and patches
	CategoryNotify Category = "notify" // Notification channel activity
)

// loggingConfig mirrors the relevant part of the CLI config file to
// avoid importing the config package from leaf packages.
type loggingConfig struct {
	DebugMode bool   `json:"debug_mode"`
	Level     string `json:"level"`
}

type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Should be
// called once at startup with the config directory path (e.g. ~/.roster).
func Initialize(configDir string) error {
	if configDir == "" {
		return fmt.Errorf("config directory required")
	}

	logsDir = filepath.Join(configDir, "logs")

	if err := loadConfig(filepath.Join(configDir, "config.json")); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		config.DebugMode = false
	}

	// Silent no-op in production mode
	if !config.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== roster logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", config.Level)
	return nil
}

func loadConfig(path string) error {
	configMu.Lock()
	defer configMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.DebugMode = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode is disabled.
func Get(category Category) *Logger {
	if !IsDebugMode() || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions - quick logging without getting a logger first.
// These are no-ops when debug mode is disabled.

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Sync logs to the sync category
func Sync(format string, args ...interface{}) {
	Get(CategorySync).Info(format, args...)
}

// SyncDebug logs debug to the sync category
func SyncDebug(format string, args ...interface{}) {
	Get(CategorySync).Debug(format, args...)
}

// SyncError logs error to the sync category
func SyncError(format string, args ...interface{}) {
	Get(CategorySync).Error(format, args...)
}

// Mutate logs to the mutate category
func Mutate(format string, args ...interface{}) {
	Get(CategoryMutate).Info(format, args...)
}

// MutateDebug logs debug to the mutate category
func MutateDebug(format string, args ...interface{}) {
	Get(CategoryMutate).Debug(format, args...)
}

// View logs to the view category
func View(format string, args ...interface{}) {
	Get(CategoryView).Info(format, args...)
}

// ViewDebug logs debug to the view category
func ViewDebug(format string, args ...interface{}) {
	Get(CategoryView).Debug(format, args...)
}

// Notify logs to the notify category
func Notify(format string, args ...interface{}) {
	Get(CategoryNotify).Info(format, args...)
}

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

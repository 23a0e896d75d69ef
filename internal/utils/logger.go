package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// defaultBackgroundLoggingEnabled is the default value when no config is available.
// The runtime config option logging.background_enabled overrides this default.
const defaultBackgroundLoggingEnabled = true

// Logger provides leveled logging with verbose mode support.
type Logger struct {
	verbose bool
	plain   zerolog.Logger // info, warn and error lines
	timed   zerolog.Logger // debug lines, prefixed with the time
	mu      sync.RWMutex
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{
			verbose: false,
		}
		loggerInstance.setSinkLocked(nil)
	})
	return loggerInstance
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	logger := GetLogger()
	logger.SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput redirects log output. Passing nil restores stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setSinkLocked(w)
}

// setSinkLocked rebuilds the console loggers over w. l.mu must be held.
func (l *Logger) setSinkLocked(w io.Writer) {
	if w == nil {
		w = stderrWriter{}
	}
	l.plain = newConsole(w, false)
	l.timed = newConsole(w, true)
}

// stderrWriter resolves os.Stderr on every write so redirections made after
// the logger was created are honored.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) {
	return os.Stderr.Write(p)
}

// formatLevel renders zerolog levels as the bracketed prefixes used across the CLI.
func formatLevel(i interface{}) string {
	s, _ := i.(string)
	return "[" + strings.ToUpper(s) + "]"
}

// newConsole builds a zerolog logger writing plain text lines to w.
// Timestamps are only rendered when withTime is set.
func newConsole(w io.Writer, withTime bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     true,
		TimeFormat:  "15:04:05",
		PartsOrder:  []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: formatLevel,
	}
	if !withTime {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
		return zerolog.New(cw)
	}
	return zerolog.New(cw).With().Timestamp().Logger()
}

func (l *Logger) sink(withTime bool) zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if withTime {
		return l.timed
	}
	return l.plain
}

// formatMessage formats a message with optional printf-style arguments.
func formatMessage(msgOrFormat string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msgOrFormat, args...)
	}
	return msgOrFormat
}

// Debug logs a debug message (only shown when verbose=true).
// Can be used with a simple message or printf-style format string with args.
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	if !l.IsVerbose() {
		return
	}
	zl := l.sink(true)
	zl.Debug().Msg(formatMessage(msgOrFormat, args...))
}

// Info logs an info message (always shown).
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	zl := l.sink(false)
	zl.Info().Msg(formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message (always shown).
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	zl := l.sink(false)
	zl.Warn().Msg(formatMessage(msgOrFormat, args...))
}

// Error logs an error message (always shown).
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	zl := l.sink(false)
	zl.Error().Msg(formatMessage(msgOrFormat, args...))
}

// Debugf is a convenience function that logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function that logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function that logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function that logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// BackgroundLogger writes logs to a PID-specific file. It is used while the
// terminal belongs to the TUI, where stderr output would corrupt the screen.
type BackgroundLogger struct {
	logger   zerolog.Logger
	logFile  *os.File
	enabled  bool
	filePath string
	mu       sync.Mutex
}

// NewBackgroundLogger creates a new background logger with a PID-specific log file.
func NewBackgroundLogger() (*BackgroundLogger, error) {
	return NewBackgroundLoggerWithEnabled(defaultBackgroundLoggingEnabled)
}

// NewBackgroundLoggerWithEnabled creates a background logger with explicit enabled control.
// Pass config.IsBackgroundLoggingEnabled() to honor the logging.background_enabled config.
func NewBackgroundLoggerWithEnabled(enabled bool) (*BackgroundLogger, error) {
	if !enabled {
		return &BackgroundLogger{
			logger:  zerolog.Nop(),
			enabled: false,
		}, nil
	}

	pid := os.Getpid()
	logPath := fmt.Sprintf("%s/dolist-%d.log", os.TempDir(), pid)
	return NewBackgroundLoggerWithPath(logPath)
}

// NewBackgroundLoggerWithPath creates a background logger with a custom path.
func NewBackgroundLoggerWithPath(path string) (*BackgroundLogger, error) {
	bl := &BackgroundLogger{
		filePath: path,
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Gracefully degrade to a no-op logger
		bl.logger = zerolog.Nop()
		bl.enabled = false
		return bl, err
	}

	bl.logFile = file
	bl.logger = zerolog.New(file).With().Timestamp().Logger()
	bl.enabled = true
	return bl, nil
}

func (bl *BackgroundLogger) log(level zerolog.Level, msg string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.logger.WithLevel(level).Msg(msg)
}

// Debug logs a debug message.
func (bl *BackgroundLogger) Debug(msgOrFormat string, args ...interface{}) {
	bl.log(zerolog.DebugLevel, formatMessage(msgOrFormat, args...))
}

// Info logs an info message.
func (bl *BackgroundLogger) Info(msgOrFormat string, args ...interface{}) {
	bl.log(zerolog.InfoLevel, formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message.
func (bl *BackgroundLogger) Warn(msgOrFormat string, args ...interface{}) {
	bl.log(zerolog.WarnLevel, formatMessage(msgOrFormat, args...))
}

// Error logs an error message.
func (bl *BackgroundLogger) Error(msgOrFormat string, args ...interface{}) {
	bl.log(zerolog.ErrorLevel, formatMessage(msgOrFormat, args...))
}

// Printf logs a formatted message at info level.
func (bl *BackgroundLogger) Printf(format string, args ...interface{}) {
	bl.Info(format, args...)
}

// Close closes the log file.
func (bl *BackgroundLogger) Close() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	if bl.logFile != nil {
		_ = bl.logFile.Close()
		bl.logFile = nil
	}
	// After close, switch to a no-op logger for graceful degradation
	bl.logger = zerolog.Nop()
	bl.enabled = false
}

// GetLogPath returns the log file path.
func (bl *BackgroundLogger) GetLogPath() string {
	return bl.filePath
}

// IsEnabled returns whether background logging is enabled.
func (bl *BackgroundLogger) IsEnabled() bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return bl.enabled
}

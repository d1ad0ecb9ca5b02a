package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// LogToStderr as a log path sends log lines to standard error.
const LogToStderr = "stderr"

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

// Logger writes leveled log lines to a file or stderr.
type Logger struct {
	mu         sync.Mutex
	level      LogLevel
	out        io.Writer
	file       *os.File
	filePath   string
	jsonOutput bool
	structured *slog.Logger
}

// NewLogger creates a new logger writing to filePath. A path of "stderr"
// writes to standard error; an empty path or LogLevelOff discards output.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	logger := &Logger{
		level:    level,
		filePath: filePath,
	}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	if filePath == LogToStderr {
		logger.out = os.Stderr
		return logger, nil
	}

	// Expand home directory
	if strings.HasPrefix(filePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		filePath = filepath.Join(home, filePath[2:])
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	logger.file = f
	logger.out = f
	logger.filePath = filePath

	return logger, nil
}

// NewStructuredLogger creates a logger whose Structured output is JSON.
func NewStructuredLogger(level LogLevel, filePath string) (*Logger, error) {
	logger, err := NewLogger(level, filePath)
	if err != nil {
		return nil, err
	}
	logger.SetJSONOutput(true)
	return logger, nil
}

// NewWriterLogger creates a logger writing to w, typically a buffer in tests
// or gin's default writer.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{level: level, out: w}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetJSONOutput switches Structured output between JSON and key=value text.
func (l *Logger) SetJSONOutput(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jsonOutput = enabled
	l.structured = nil
}

// Structured returns a slog.Logger sharing this logger's destination and
// level, or nil when logging is disabled.
func (l *Logger) Structured() *slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || l.out == nil {
		return nil
	}
	if l.structured == nil {
		opts := &slog.HandlerOptions{Level: l.level.slogLevel()}
		w := &lockedWriter{logger: l}
		if l.jsonOutput {
			l.structured = slog.New(slog.NewJSONHandler(w, opts))
		} else {
			l.structured = slog.New(slog.NewTextHandler(w, opts))
		}
	}
	return l.structured
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// InfoAttrs logs a structured informational record, e.g. one HTTP request.
func (l *Logger) InfoAttrs(msg string, attrs ...slog.Attr) {
	s := l.Structured()
	if s == nil {
		return
	}
	s.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

// log writes a log message if the level is appropriate.
func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level || l.out == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelStr := strings.ToUpper(level.String())
	msg := fmt.Sprintf(format, args...)

	_, _ = fmt.Fprintf(l.out, "%s [%s] %s\n", timestamp, levelStr, msg)
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// lockedWriter serializes slog output with the printf-style lines.
type lockedWriter struct {
	logger *Logger
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.logger.mu.Lock()
	defer w.logger.mu.Unlock()
	if w.logger.out == nil {
		return len(p), nil
	}
	return w.logger.out.Write(p)
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff}
}

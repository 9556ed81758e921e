// Package logger provides leveled, colored logging for all server and
// client components. Loggers are constructed per component and injected;
// the only package-level state is the default level and log directory
// configured once at startup.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

// Log levels in increasing order of severity
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the level tag used in log lines.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

var (
	configMu     sync.Mutex
	defaultLevel = INFO
	logDir       string
)

// SetGlobalLogLevel sets the level new loggers start with. Call once at
// startup before constructing component loggers.
func SetGlobalLogLevel(level LogLevel) {
	configMu.Lock()
	defer configMu.Unlock()
	defaultLevel = level
}

// InitializeFileLogging creates dir and makes new loggers write a plain-text
// copy of their output to <dir>/<name>.log.
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	configMu.Lock()
	defer configMu.Unlock()
	logDir = dir
	return nil
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgCyan),
	INFO:  color.New(color.FgGreen),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

// Logger writes timestamped, component-tagged log lines to a console writer
// and optionally to a file. Console output colors the level tag; file output
// is plain text.
type Logger struct {
	name  string
	level LogLevel
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
}

// New creates a logger for the named component at the global default level.
// If file logging was initialized, a <name>.log sink is attached; failure to
// open it degrades to console-only logging.
func New(name string) *Logger {
	configMu.Lock()
	level := defaultLevel
	dir := logDir
	configMu.Unlock()

	l := &Logger{
		name:  name,
		level: level,
		out:   os.Stdout,
	}
	if dir != "" {
		path := filepath.Join(dir, name+".log")
		if err := l.SetFile(path); err != nil {
			l.Warn("Could not open log file %s: %v", path, err)
		}
	}
	return l
}

// SetLevel overrides this logger's minimum level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput redirects console output. Room processes use stderr because
// stdout carries the control channel.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetFile attaches (or replaces) the file sink, appending to path.
func (l *Logger) SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	return nil
}

// Close releases the file sink if one is attached.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	tag := level.String()

	coloredTag := tag
	if c, ok := levelColors[level]; ok {
		coloredTag = c.Sprint(tag)
	}
	fmt.Fprintf(l.out, "[%s] [%s] [%s] %s\n", timestamp, coloredTag, l.name, message)

	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] [%s] [%s] %s\n", timestamp, tag, l.name, message)
	}
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs a message at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs a message at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// Fatal logs a message at FATAL level and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
	os.Exit(1)
}

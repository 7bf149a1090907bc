// Package debug provides logging, profiling and buffer inspection for the
// engine's update and render paths.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"
)

// Logger is a leveled logger satisfying logging.LeveledLogger.
// Level filtering uses logging.LogLevel: a message is written when its level
// is at or below the configured verbosity.
type Logger struct {
	mu     *sync.Mutex
	output io.Writer
	level  *logging.LogLevel
	prefix string
	flags  int
}

// Flags for logger output formatting.
const (
	FlagTime      = 1 << iota // Include timestamp
	FlagShortFile             // Include short file name and line number
	FlagLevel                 // Include log level
	FlagPrefix                // Include prefix
)

// DefaultFlags are the default formatting flags.
const DefaultFlags = FlagTime | FlagLevel | FlagPrefix

var defaultLogger = New(os.Stderr, "", DefaultFlags)

// New creates a new logger instance at LogLevelInfo.
func New(output io.Writer, prefix string, flags int) *Logger {
	level := logging.LogLevelInfo
	return &Logger{
		mu:     &sync.Mutex{},
		output: output,
		level:  &level,
		prefix: prefix,
		flags:  flags,
	}
}

// WithScope returns a logger sharing output and level but using a different prefix.
func (l *Logger) WithScope(scope string) *Logger {
	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		prefix: scope,
		flags:  l.flags,
	}
}

// SetLevel sets the most verbose level that is written.
// Loggers derived with WithScope share the level.
func (l *Logger) SetLevel(level logging.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// Level returns the configured verbosity.
func (l *Logger) Level() logging.LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.level
}

func (l *Logger) log(level logging.LogLevel, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > *l.level || l.output == nil {
		return
	}

	var sb strings.Builder

	if l.flags&FlagTime != 0 {
		sb.WriteString(time.Now().Format("2006-01-02 15:04:05.000 "))
	}
	if l.flags&FlagLevel != 0 {
		sb.WriteString("[")
		sb.WriteString(strings.ToUpper(level.String()))
		sb.WriteString("] ")
	}
	if l.flags&FlagPrefix != 0 && l.prefix != "" {
		sb.WriteString("[")
		sb.WriteString(l.prefix)
		sb.WriteString("] ")
	}
	if l.flags&FlagShortFile != 0 {
		// log, the level method, and its caller
		if _, file, line, ok := runtime.Caller(2); ok {
			fmt.Fprintf(&sb, "%s:%d: ", filepath.Base(file), line)
		}
	}

	sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		sb.WriteString("\n")
	}

	_, _ = io.WriteString(l.output, sb.String())
}

// Trace logs a trace message.
func (l *Logger) Trace(msg string) { l.log(logging.LogLevelTrace, msg) }

// Tracef formats and logs a trace message.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(logging.LogLevelTrace, fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) { l.log(logging.LogLevelDebug, msg) }

// Debugf formats and logs a debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(logging.LogLevelDebug, fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(msg string) { l.log(logging.LogLevelInfo, msg) }

// Infof formats and logs an informational message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(logging.LogLevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) { l.log(logging.LogLevelWarn, msg) }

// Warnf formats and logs a warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(logging.LogLevelWarn, fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(msg string) { l.log(logging.LogLevelError, msg) }

// Errorf formats and logs an error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(logging.LogLevelError, fmt.Sprintf(format, args...))
}

// Factory hands out scoped loggers that share one output and level.
// It satisfies logging.LoggerFactory.
type Factory struct {
	root *Logger
}

// NewFactory creates a factory writing to output at the given level.
func NewFactory(output io.Writer, level logging.LogLevel) *Factory {
	root := New(output, "", DefaultFlags)
	root.SetLevel(level)
	return &Factory{root: root}
}

// NewLogger returns a logger for the given scope.
func (f *Factory) NewLogger(scope string) logging.LeveledLogger {
	return f.root.WithScope(scope)
}

// SetLevel changes the level of every logger from this factory.
func (f *Factory) SetLevel(level logging.LogLevel) {
	f.root.SetLevel(level)
}

// Default returns the default logger instance (stderr, info).
func Default() *Logger {
	return defaultLogger
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	l := New(io.Discard, "", 0)
	l.SetLevel(logging.LogLevelDisabled)
	return l
}

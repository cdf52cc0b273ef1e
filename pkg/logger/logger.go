package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Config configures the logger with rotation settings
type Config struct {
	// Filename is the file to write logs to; "", "-" and "stdout" mean stdout
	Filename string

	MaxSize    int // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool

	Level Level

	// Output overrides Filename (tests)
	Output io.Writer
}

// DefaultConfig returns rotation defaults for filename
func DefaultConfig(filename string) Config {
	return Config{
		Filename:   filename,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
		Level:      INFO,
	}
}

// sink is shared by a logger and every logger derived from it with WithField.
type sink struct {
	mu      sync.Mutex
	out     *log.Logger
	level   Level
	rotator *lumberjack.Logger
}

// Logger provides structured logging with optional file rotation
type Logger struct {
	sink   *sink
	fields map[string]any
}

// NewWithConfig creates a new logger from cfg
func NewWithConfig(cfg Config) (*Logger, error) {
	s := &sink{level: cfg.Level}

	switch {
	case cfg.Output != nil:
		s.out = log.New(cfg.Output, "", 0)
	case cfg.Filename == "" || cfg.Filename == "-" || cfg.Filename == "stdout":
		s.out = log.New(os.Stdout, "", 0)
	default:
		logDir := filepath.Dir(cfg.Filename)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
		s.rotator = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		s.out = log.New(s.rotator, "", 0)
	}

	return &Logger{sink: s, fields: map[string]any{}}, nil
}

// New creates a logger writing to logfile, falling back to stdout.
func New(logfile string, level Level) *Logger {
	cfg := DefaultConfig(logfile)
	cfg.Level = level
	l, err := NewWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log file %s: %v. Falling back to stdout.\n", logfile, err)
		l, _ = NewWithConfig(Config{Output: os.Stdout, Level: level})
	}
	return l
}

// Close closes the log file if using rotation
func (l *Logger) Close() error {
	if l.sink.rotator != nil {
		return l.sink.rotator.Close()
	}
	return nil
}

// SetLevel sets the minimum logging level for this logger and its children
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.level = level
	l.sink.mu.Unlock()
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]any) *Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{sink: l.sink, fields: merged}
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err)
}

// WithComponent tags entries with the subsystem that produced them.
func (l *Logger) WithComponent(name string) *Logger {
	return l.WithField("component", name)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (l *Logger) log(level Level, msg string, args ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if level < l.sink.level {
		return
	}

	message := msg
	if len(args) > 0 {
		message = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	b.WriteString("] ")
	b.WriteString(level.String())
	b.WriteString(": ")
	b.WriteString(message)

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(" | ")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(formatValue(l.fields[k]))
		}
	}

	l.sink.out.Println(b.String())
}

func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any) { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any) { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ERROR, msg, args...) }

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

func init() {
	defaultLogger, _ = NewWithConfig(Config{Output: os.Stdout, Level: INFO})
}

// SetDefault sets the default global logger
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// GetDefault returns the default global logger
func GetDefault() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Info(msg string, args ...any) { GetDefault().Info(msg, args...) }
func Warn(msg string, args ...any) { GetDefault().Warn(msg, args...) }
func Error(msg string, args ...any) { GetDefault().Error(msg, args...) }
func Debug(msg string, args ...any) { GetDefault().Debug(msg, args...) }

func WithField(key string, value any) *Logger { return GetDefault().WithField(key, value) }
func WithFields(fields map[string]any) *Logger { return GetDefault().WithFields(fields) }
func WithError(err error) *Logger { return GetDefault().WithError(err) }
func WithComponent(name string) *Logger { return GetDefault().WithComponent(name) }

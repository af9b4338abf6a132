package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelTrace LogLevel = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  LogLevel `json:"level"`
	Format string   `json:"format"` // "json" or "text"
	Output string   `json:"output"` // "stdout", "stderr", or file path
}

// Logger provides structured logging with context support
type Logger struct {
	config  LogConfig
	slogger *slog.Logger
	file    *os.File
	lvl     *slog.LevelVar
	mu      sync.Mutex
}

type ctxKey string

// RequestIDKey is the context key under which the API middleware stores the
// request ID. ContextLogger picks it up automatically.
const RequestIDKey ctxKey = "request_id"

// DefaultLogConfig returns the default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  LevelInfo,
		Format: "json",
		Output: "stdout",
	}
}

// NewLogger creates a new structured logger
func NewLogger(config LogConfig) (*Logger, error) {
	logger := &Logger{config: config, lvl: new(slog.LevelVar)}
	logger.lvl.Set(toSlogLevel(config.Level))

	var writer io.Writer
	switch config.Output {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := openLogFile(config.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file logging: %w", err)
		}
		logger.file = f
		writer = f
	}

	logger.slogger = slog.New(newHandler(writer, config.Format, logger.lvl))
	return logger, nil
}

// NewWriterLogger builds a logger on top of an arbitrary writer. Tests use it
// with io.Discard or a bytes.Buffer.
func NewWriterLogger(w io.Writer, config LogConfig) *Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(toSlogLevel(config.Level))
	return &Logger{config: config, lvl: lvl, slogger: slog.New(newHandler(w, config.Format, lvl))}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWriterLogger(io.Discard, LogConfig{Level: LevelFatal, Format: "text"})
}

func newHandler(w io.Writer, format string, lvl *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel changes the minimum level at runtime. The config watcher uses it
// when LOG_LEVEL changes.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
	l.lvl.Set(toSlogLevel(level))
}

func (l *Logger) level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Level
}

// WithContext returns a logger with context information
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, ctx: ctx}
}

// WithComponent returns a logger with component information
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component string
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(context.Background(), LevelDebug, msg, nil, fields)
}

// Info logs at info level
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(context.Background(), LevelInfo, msg, nil, fields)
}

// Warn logs at warning level
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(context.Background(), LevelWarn, msg, nil, fields)
}

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(context.Background(), LevelError, msg, err, fields)
}

// Fatal logs at fatal level and exits
func (l *Logger) Fatal(msg string, err error, fields ...Field) {
	l.log(context.Background(), LevelFatal, msg, err, fields)
	l.Close()
	os.Exit(1)
}

func (cl *ComponentLogger) with(fields []Field) []Field {
	return append(fields, String("component", cl.component))
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelDebug, msg, nil, cl.with(fields))
}

func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelInfo, msg, nil, cl.with(fields))
}

func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(context.Background(), LevelWarn, msg, nil, cl.with(fields))
}

func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(context.Background(), LevelError, msg, err, cl.with(fields))
}

// Ctx binds a request context so request IDs flow into component logs.
func (cl *ComponentLogger) Ctx(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: cl.logger, ctx: withComponent(ctx, cl.component)}
}

type componentKey struct{}

func withComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey{}, component)
}

func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelDebug, msg, nil, fields)
}

func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelInfo, msg, nil, fields)
}

func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(cl.ctx, LevelWarn, msg, nil, fields)
}

func (cl *ContextLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(cl.ctx, LevelError, msg, err, fields)
}

func (l *Logger) log(ctx context.Context, level LogLevel, msg string, err error, fields []Field) {
	if level < l.level() {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+3)
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if c, ok := ctx.Value(componentKey{}).(string); ok && c != "" {
		attrs = append(attrs, slog.String("component", c))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if level >= LevelWarn {
		if _, file, line, ok := runtime.Caller(3); ok {
			attrs = append(attrs, slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line)))
		}
	}
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}

	l.slogger.LogAttrs(ctx, toSlogLevel(level), msg, attrs...)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

// ParseLevel maps LOG_LEVEL values onto LogLevel. Unknown values yield an error
// so config validation can reject them.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

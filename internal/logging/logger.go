// Package logging provides structured JSON logging for the boreal
// optimization service, plus a zapcore adapter for components written
// against zap.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	// DebugLevel is for per-iteration detail, disabled in production.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel marks recoverable conditions, such as convergence
	// warnings from the candidate search.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel marks failed operations.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs and then exits the process.
	FatalLevel LogLevel = "FATAL"
)

// severity orders levels for filtering; unknown levels are never
// logged.
func severity(level LogLevel) int {
	switch level {
	case DebugLevel:
		return 0
	case InfoLevel:
		return 1
	case WarnLevel:
		return 2
	case ErrorLevel:
		return 3
	case FatalLevel:
		return 4
	default:
		return -1
	}
}

// Logger writes JSON log lines with persistent fields. Loggers are
// immutable; WithFields returns a derived logger.
type Logger struct {
	level  LogLevel
	output io.Writer
	fields map[string]interface{}
}

// New creates a Logger emitting entries at or above level.
func New(level LogLevel, output io.Writer) *Logger {
	return &Logger{level: level, output: output, fields: map[string]interface{}{}}
}

// Nop returns a logger that discards everything, for use as a library
// default.
func Nop() *Logger {
	return New(FatalLevel, io.Discard)
}

// WithFields returns a derived Logger carrying the merged fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, fields: merged}
}

// WithField returns a derived Logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a derived Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func (l *Logger) shouldLog(level LogLevel) bool {
	s := severity(level)
	return s >= 0 && s >= severity(l.level)
}

// caller returns the file:line of the logging call site, trimmed to
// the last two path segments.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???:0"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	entry := make(map[string]interface{}, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["message"] = msg
	entry["caller"] = caller(3)

	line, err := json.Marshal(entry)
	if err != nil {
		// Some field did not marshal; keep the line rather than drop it.
		fmt.Fprintf(l.output, "%s [%s] %s: %+v\n",
			time.Now().UTC().Format(time.RFC3339), level, msg, fields)
	} else {
		_, _ = l.output.Write(append(line, '\n'))
	}

	if level == FatalLevel {
		os.Exit(1)
	}
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields))
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields))
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields))
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields))
}

// Fatal logs a message at FatalLevel and exits the process.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields))
}

// CtxLogger carries a Logger through a context.
type CtxLogger struct {
	*Logger
}

type ctxLoggerKey struct{}

// FromContext returns the request-scoped logger, or a default stderr
// logger when none was injected.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a context carrying the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

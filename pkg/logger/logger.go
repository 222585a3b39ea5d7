package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog behind a small structured-field API. Warn and error
// events are additionally mirrored into the diagnostics collector when one
// is attached.
type Logger struct {
	zl        zerolog.Logger
	collector *DiagnosticsCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string // timestamp layout, RFC3339Nano when empty
}

func New(cfg *Config) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	zl := zerolog.New(out).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	withFields(l.zl.Debug(), fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields ...Field) {
	withFields(l.zl.Info(), fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	withFields(l.zl.Warn(), fields).Msg(msg)
	l.capture("warn", msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	withFields(l.zl.Error(), fields).Msg(msg)
	l.capture("error", msg, fields)
}

func withFields(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		f.emit(e)
	}
	return e
}

// capture mirrors an event into the collector. Caller depth assumes
// capture is invoked directly from Warn or Error.
func (l *Logger) capture(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	site := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		site = fmt.Sprintf("%s:%d", shortPath(file), line)
	}

	kv := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.keyValue()
		kv[k] = v
	}
	l.collector.Add(level, msg, kv, site)
}

// shortPath keeps the trailing path segments that identify the package,
// dropping the build host's directory layout.
func shortPath(file string) string {
	parts := strings.Split(file, "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return strings.Join(parts, "/")
}

// AddCollector attaches a diagnostics collector so that warn/error events
// stay queryable after they scrolled out of the log stream.
func (l *Logger) AddCollector(config *CollectorConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewDiagnosticsCollector(config)
}

func (l *Logger) Collector() *DiagnosticsCollector {
	return l.collector
}

type fieldKind uint8

const (
	fieldString fieldKind = iota
	fieldInt
	fieldDuration
	fieldError
)

// Field is one typed key/value pair attached to a log event.
type Field struct {
	key  string
	kind fieldKind
	str  string
	num  int64
	err  error
}

func (f Field) emit(e *zerolog.Event) {
	switch f.kind {
	case fieldString:
		e.Str(f.key, f.str)
	case fieldInt:
		e.Int64(f.key, f.num)
	case fieldDuration:
		e.Dur(f.key, time.Duration(f.num))
	case fieldError:
		e.Err(f.err)
	}
}

// keyValue renders the field for the diagnostics collector.
func (f Field) keyValue() (string, interface{}) {
	switch f.kind {
	case fieldInt:
		return f.key, f.num
	case fieldDuration:
		return f.key, time.Duration(f.num).String()
	case fieldError:
		if f.err == nil {
			return f.key, "<nil>"
		}
		return f.key, f.err.Error()
	default:
		return f.key, f.str
	}
}

func String(key, value string) Field {
	return Field{key: key, kind: fieldString, str: value}
}

func Int(key string, value int) Field {
	return Field{key: key, kind: fieldInt, num: int64(value)}
}

func Int64(key string, value int64) Field {
	return Field{key: key, kind: fieldInt, num: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: fieldDuration, num: int64(value)}
}

func Error(err error) Field {
	return Field{key: "error", kind: fieldError, err: err}
}

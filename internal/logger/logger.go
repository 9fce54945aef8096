// Package logger provides a context-aware structured logger built on log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Level is the minimum severity a Logger emits.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// LoggerInterface is what business packages depend on.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// Record is the payload handed to event hooks.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Attrs   map[string]any
}

// EventFunc is invoked after a record at the hooked level is written.
type EventFunc func(ctx context.Context, r Record)

// Events lets callers observe records without parsing output.
// The dashboard uses the Error hook while log output is discarded.
type Events struct {
	Debug EventFunc
	Info  EventFunc
	Warn  EventFunc
	Error EventFunc
}

// Logger writes JSON records and decorates them with the service name and
// the active trace/span ids.
type Logger struct {
	handler slog.Handler
	level   Level
	events  *Events
}

var _ LoggerInterface = (*Logger)(nil)

// New constructs a Logger writing JSON lines to w.
func New(w io.Writer, minLevel Level, serviceName string, events *Events) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     minLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	})

	return &Logger{
		handler: h.WithAttrs([]slog.Attr{slog.String("service", serviceName)}),
		level:   minLevel,
		events:  events,
	}
}

// NewNop returns a logger that drops everything. Handy in tests.
func NewNop() *Logger {
	return New(io.Discard, LevelError+4, "nop", nil)
}

// With returns a child logger that always carries args.
func (l *Logger) With(args ...any) *Logger {
	attrs := argsToAttrs(args)
	return &Logger{
		handler: l.handler.WithAttrs(attrs),
		level:   l.level,
		events:  l.events,
	}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args...)
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	if l.handler.Enabled(ctx, level) {
		r := slog.NewRecord(time.Now(), level, msg, 0)
		r.AddAttrs(argsToAttrs(args)...)

		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
		_ = l.handler.Handle(ctx, r)
	}

	l.fire(ctx, level, msg, args)
}

func (l *Logger) fire(ctx context.Context, level Level, msg string, args []any) {
	if l.events == nil {
		return
	}

	var fn EventFunc
	switch level {
	case LevelDebug:
		fn = l.events.Debug
	case LevelInfo:
		fn = l.events.Info
	case LevelWarn:
		fn = l.events.Warn
	case LevelError:
		fn = l.events.Error
	}
	if fn == nil {
		return
	}

	attrs := make(map[string]any, len(args)/2)
	for _, a := range argsToAttrs(args) {
		attrs[a.Key] = a.Value.Any()
	}
	fn(ctx, Record{Time: time.Now(), Level: level, Message: msg, Attrs: attrs})
}

// ParseLevel maps the config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case slog.Attr:
			attrs = append(attrs, v)
		case string:
			if i+1 >= len(args) {
				attrs = append(attrs, slog.Any("!BADKEY", v))
				continue
			}
			val := args[i+1]
			if err, ok := val.(error); ok {
				val = err.Error()
			}
			attrs = append(attrs, slog.Any(v, val))
			i++
		default:
			attrs = append(attrs, slog.Any("!BADKEY", v))
		}
	}
	return attrs
}

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Leveler
	Format    string
	Output    io.Writer
	AddSource bool
}

// DefaultConfig logs text at info level to stderr. Stdout is reserved for
// protocol traffic.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

func Init(cfg Config) {
	slog.SetDefault(New(cfg))
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with component. It writes through
// whatever slog.Default is at the time of each call, so package-level
// loggers follow a later Init.
func ForComponent(component string) *slog.Logger {
	return With("component", component)
}

func With(args ...any) *slog.Logger {
	return slog.New(&deferredHandler{}).With(args...)
}

// deferredHandler forwards to slog.Default's handler, applying the attrs
// and groups it has collected on the way.
type deferredHandler struct {
	wrap func(slog.Handler) slog.Handler
}

func (h *deferredHandler) current() slog.Handler {
	target := slog.Default().Handler()
	if h.wrap != nil {
		target = h.wrap(target)
	}
	return target
}

func (h *deferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.then(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *deferredHandler) WithGroup(name string) slog.Handler {
	return h.then(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *deferredHandler) then(step func(slog.Handler) slog.Handler) slog.Handler {
	prev := h.wrap
	return &deferredHandler{wrap: func(target slog.Handler) slog.Handler {
		if prev != nil {
			target = prev(target)
		}
		return step(target)
	}}
}

package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component that owns it. The
// component attribute is attached once when the logger is built, so the
// embedded slog methods are used as they are.
type Logger struct {
	*slog.Logger
	// base carries every attribute except the component.
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler defaults to a text handler on stdout at Level.
	Handler slog.Handler
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})
	}
	return tagged(slog.New(h), cfg.Component)
}

func tagged(base *slog.Logger, component string) *Logger {
	l := base
	if component != "" {
		l = base.With(FieldComponent, component)
	}
	return &Logger{Logger: l, base: base, component: component}
}

// With adds attributes while keeping the component.
func (l *Logger) With(args ...any) *Logger {
	return tagged(l.base.With(args...), l.component)
}

// WithComponent retags the logger; attributes added through With are kept.
func (l *Logger) WithComponent(component string) *Logger {
	return tagged(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

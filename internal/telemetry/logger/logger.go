package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the structured logger handed to notekeep components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config mirrors the log section of the CLI configuration.
type Config struct {
	Level  string    // debug, info, warn or error
	Format string    // text or json
	Output io.Writer // nil means stderr
}

// level is shared by every logger built with New so the config watcher
// can retune a running REPL.
var level = new(slog.LevelVar)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

type slogLogger struct{ *slog.Logger }

func (l slogLogger) With(args ...any) Logger {
	return slogLogger{l.Logger.With(args...)}
}

// New builds a logger writing cfg.Format records to cfg.Output. Attribute
// values pass through redactSensitive before they are written.
func New(cfg Config) (Logger, error) {
	SetLevel(cfg.Level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		return slogLogger{slog.New(slog.NewTextHandler(out, opts))}, nil
	case "json":
		return slogLogger{slog.New(slog.NewJSONHandler(out, opts))}, nil
	}
	return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
}

// SetLevel changes the minimum level of every logger built with New.
// Unknown names fall back to info.
func SetLevel(name string) {
	l, ok := levelNames[strings.ToLower(name)]
	if !ok {
		l = slog.LevelInfo
	}
	level.Set(l)
}

// GetLevel reports the current level name.
func GetLevel() string {
	switch level.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	}
	return "info"
}

// Nop returns a logger that drops every record. It leaves the shared
// level alone.
func Nop() Logger {
	return slogLogger{slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

var std atomic.Value // Logger

func init() {
	l, _ := New(Config{Level: "warn"})
	std.Store(&l)
}

// SetDefault replaces the logger returned by Default. The root command
// installs the configured logger here before any subcommand runs.
func SetDefault(l Logger) {
	if l != nil {
		std.Store(&l)
	}
}

// Default returns the process-wide logger used by components that were
// not given one explicitly.
func Default() Logger {
	return *std.Load().(*Logger)
}

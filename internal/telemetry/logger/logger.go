package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler New builds.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource records the calling file and line.
	AddSource bool
}

var level = new(slog.LevelVar)

// New returns a logger whose handler redacts stored values by attribute
// key and reads its threshold from the shared level.
func New(cfg Config) (*slog.Logger, error) {
	lv, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lv)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
}

// SetLevel changes the threshold of every logger built by New. An
// unknown name leaves the level unchanged and is reported.
func SetLevel(name string) error {
	lv, err := parseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lv)
	return nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", name)
}

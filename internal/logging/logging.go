// Package logging builds the zerolog logger shared by the CLI verbs and the
// watch service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config is the `logging` section of aegis-sync's configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is "stderr" (default) or "stdout".
	Output      string `mapstructure:"output"`
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

// NewLogger returns a timestamped logger. Unknown levels fall back to info.
func NewLogger(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	ctx := zerolog.New(writerFor(cfg)).Level(levelFor(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component tags every entry of logger with component=name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func levelFor(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// writerFor keeps stdout free for tables and JSON unless asked otherwise.
func writerFor(cfg Config) io.Writer {
	out := io.Writer(os.Stderr)
	if strings.EqualFold(cfg.Output, "stdout") {
		out = os.Stdout
	}
	if !cfg.PrettyPrint && !strings.EqualFold(cfg.Format, "console") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
}

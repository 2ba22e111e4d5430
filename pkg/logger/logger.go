// Package logger configures the zerolog instance shared by the booking
// engine. Repositories, services and handlers derive child loggers from
// it with their own tag.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the log level and output format.
type Config struct {
	Level  string // trace, debug, info, warn, error; anything else falls back to info
	Pretty bool   // human-readable console output for local runs
}

// New builds the root logger. JSON to stdout by default; the pretty
// console writer is for development only, it is slow.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	root := zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	if err != nil && strings.TrimSpace(cfg.Level) != "" {
		root.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
	}
	return root
}

// SetGlobalLogger replaces the zerolog package-level logger so code
// using log.Logger picks up the configured instance.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}

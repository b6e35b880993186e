// Package logging configures the structured logger used for diagnostics.
// Human-facing output goes through the ui package instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel overrides the default log level.
const EnvLevel = "BERTH_LOG_LEVEL"

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configure a logger.
type Options struct {
	// Level is a zerolog level name. Empty uses BERTH_LOG_LEVEL, then warn.
	Level string

	// Format is console or json.
	Format string

	// Writer defaults to stderr.
	Writer io.Writer
}

// New builds a logger from opts.
func New(opts Options) (zerolog.Logger, error) {
	level := opts.Level
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if level == "" {
		level = zerolog.WarnLevel.String()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want %s or %s)", opts.Format, FormatConsole, FormatJSON)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Package logging configures the process-wide zerolog logger.
//
// Setup is called once from the command before any component logger is
// created. Components take a child logger from NewLogger and attach their
// own fields:
//
//	component  exporter, counter, site, cache, admin, http
//	scrape_id  correlation ID of one scrape
//	event      domain event name (save_post)
//	count      buffered or drained count
//	path       request path
//	pattern    rewrite rule pattern
//	operation  cache operation (get, incrby, getdel, ping)
//
// Levels: buffered events, drained counts and suppressed redirects are
// debug; rule flushes and backend selection are info; cache failures that
// degrade a counter to 0 are warn; failed scrapes and failed rule flushes
// are error.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLevel is used when no level or an unknown level is configured.
const DefaultLevel = zerolog.InfoLevel

// Config holds logger configuration.
type Config struct {
	// Level is a level name as accepted by ParseLevel.
	Level string

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output receives log lines (default: os.Stderr).
	Output io.Writer
}

// FromSettings builds a Config from the configured level name and format.
// A nil output means stderr.
func FromSettings(level string, pretty bool, output io.Writer) Config {
	if output == nil {
		output = os.Stderr
	}
	return Config{Level: level, Pretty: pretty, Output: output}
}

// ParseLevel maps a level name to a zerolog level. Besides zerolog's own
// names it accepts "warning" and "off". Empty means DefaultLevel.
func ParseLevel(name string) (zerolog.Level, error) {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "":
		return DefaultLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "off":
		return zerolog.Disabled, nil
	}
	return zerolog.ParseLevel(name)
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = DefaultLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if err != nil {
		log.Logger.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
	}
	return log.Logger
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

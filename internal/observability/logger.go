package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string
	// Format is json or console.
	Format string
	// Output is stdout or stderr.
	Output string
}

func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if f := strings.ToLower(cfg.Format); f == "console" || f == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func WithRunContext(logger zerolog.Logger, runID int64, folder string) zerolog.Logger {
	return logger.With().Int64("run_id", runID).Str("folder", folder).Logger()
}

func WithPaperContext(logger zerolog.Logger, filename string) zerolog.Logger {
	return logger.With().Str("paper", filename).Logger()
}

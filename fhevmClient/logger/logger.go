// Package logger builds the zerolog loggers used by the daemon and CLI.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/config"
)

// Init creates the daemon logger, writing to stdout, from the log settings
// in cfg.
func Init(cfg config.Config) zerolog.Logger {
	return New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)
}

// New creates a logger writing to w. format "json" writes JSON lines; any
// other value writes the human readable console format. With sample set only
// every fifth event is kept.
func New(w io.Writer, level int, format string, sample bool) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(w).Level(zerolog.Level(level)).With().Timestamp().Logger()
	if sample {
		l = l.Sample(&zerolog.BasicSampler{N: 5})
	}
	return l
}

// TraceTo adapts a logger into the plain trace callback taken by the
// relayer SDK loader.
func TraceTo(logger zerolog.Logger) func(string) {
	return func(msg string) {
		logger.Debug().Msg(msg)
	}
}

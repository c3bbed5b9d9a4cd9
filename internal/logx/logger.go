package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to w. Production writes JSON, anything else a
// console format. level overrides the environment's default level when it
// parses ("debug", "warn", ...).
func New(w io.Writer, env, level string) zerolog.Logger {
	prod := strings.EqualFold(env, "production")

	lvl := zerolog.DebugLevel
	if prod {
		lvl = zerolog.InfoLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		lvl = parsed
	}

	if !prod {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Init replaces the global logger used by the helpers below.
func Init(env, level string) {
	log.Logger = New(os.Stdout, env, level)
}

func With() zerolog.Context {
	return log.With()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

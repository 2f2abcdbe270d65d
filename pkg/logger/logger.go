// Package logger builds the process-wide zerolog.Logger used by every
// component in this module.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the root logger is constructed.
type Config struct {
	Level  string // debug|info|warn|error
	Pretty bool   // human-readable console output instead of JSON
}

// New builds a root logger from cfg. Production deployments use Pretty=false
// to get the JSON format named in the external-interfaces logging contract.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out zerolog.Logger
	if cfg.Pretty {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		out = zerolog.New(writer)
	} else {
		out = zerolog.New(os.Stdout)
	}

	return out.With().Timestamp().Caller().Logger()
}

// SetGlobalLogger installs log as zerolog.DefaultContextLogger, the logger
// zerolog.Ctx returns for a context that carries none. The zerolog/log
// package's global Logger is not changed.
func SetGlobalLogger(log zerolog.Logger) {
	zerolog.DefaultContextLogger = &log
}

// Scoped returns log bound with a module field, the convention every
// service in this codebase uses instead of passing around a bare logger.
func Scoped(log zerolog.Logger, module string) zerolog.Logger {
	return log.With().Str("module", module).Logger()
}

// Package logger bootstraps the process-wide zerolog logger. It is an
// infrastructure concern outside the engine core: internal/engine and its
// sibling packages take a zerolog.Logger value, they never call Setup
// themselves.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Setup configures the global zerolog logger at the given level and returns
// it, grounded on the teacher's slog.JSONHandler bootstrap but switched to
// zerolog, the library the teacher's own node executors import directly
// (internal/application/executor/node_executors.go's "github.com/rs/zerolog/log").
func Setup(level string) zerolog.Logger {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Default returns a logger at info level.
func Default() zerolog.Logger {
	return Setup("info")
}

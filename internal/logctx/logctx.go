// Package logctx builds the zerolog.Logger shared by cmd/pokerengine and
// internal/arbiter, grounded on cmd/pokerforbots/shared's console/structured
// logger split.
package logctx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing to a pretty console at TTYs and plain JSON
// lines otherwise (a file, a pipe, or stdout redirected). debug raises the
// level to Debug; the default is Info.
func New(dest io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	writer := dest
	if f, ok := dest.(*os.File); ok && isTerminal(f) {
		zerolog.TimeFieldFormat = time.RFC3339
		writer = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	} else {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// Open resolves spec.md §6's --log-file flag: "" means stdout, anything else
// is opened for append (created if missing). Callers are responsible for
// closing the returned file when it is not os.Stdout.
func Open(path string) (*os.File, error) {
	if path == "" {
		return os.Stdout, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

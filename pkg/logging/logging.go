// Package logging builds the zerolog loggers handed to the dictation
// service and front ends.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02 15:04:05"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ParseLevel maps a config level name to zerolog. Verbose forces debug.
func ParseLevel(name string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New writes human readable lines to w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
		NoColor:    true,
	}
	return zerolog.New(cw).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

// Open appends to the file at path. If the file cannot be opened the
// logger writes to stderr and the error is returned alongside it.
func Open(path string, level zerolog.Level) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return New(os.Stderr, level), nopCloser{}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return New(os.Stderr, level), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

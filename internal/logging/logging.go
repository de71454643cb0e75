// Package logging builds the structured logger shared by the binaries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options selects the level and optional log file.
type Options struct {
	Level string // debug, info, warn or error
	File  string // appended to in addition to stderr
}

// New returns a logger writing to stderr, and to opts.File when set. The
// returned closer releases the log file.
func New(opts Options) (*log.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		// write to both stderr and file so running interactively still shows logs
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	logger := log.NewWithOptions(out, log.Options{ReportTimestamp: true})
	level, known := ParseLevel(opts.Level)
	logger.SetLevel(level)
	if !known {
		logger.Warn("unknown log level, defaulting to info", "provided", opts.Level)
	}
	return logger, closer, nil
}

// ParseLevel maps a level name onto a log level. Unknown names map to info
// and report ok=false.
func ParseLevel(s string) (level log.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	}
	return log.InfoLevel, false
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

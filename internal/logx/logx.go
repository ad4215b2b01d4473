// Package logx builds the structured loggers used across orlint.
// Logs go to stderr; stdout is reserved for reports and the LSP stream.
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	Level      string // debug, info, warn, error; default warn
	Prefix     string
	Timestamps bool
}

// New creates a logger writing to w (stderr when nil).
func New(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = log.WarnLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		Level:           level,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      time.TimeOnly,
	})
}

// ParseLevel accepts the charmbracelet level names; empty means warn.
func ParseLevel(s string) (log.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return log.WarnLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	return log.ParseLevel(s)
}

// Discard returns a logger that drops everything; for tests and library
// callers that pass no logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

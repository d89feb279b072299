// Package sysutil holds the process-level helpers the shopd entry point uses
// to set up logging and report its build.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string and returns
// the level applied. Matching is case-insensitive; "warning" is accepted for
// warn, and empty or unknown values fall back to info.
func SetLogLevel(lvl string) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil || l == zerolog.NoLevel || l == zerolog.Disabled || l == zerolog.TraceLevel {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
	return l
}

// NewLogger builds the root logger for service. Pretty output is meant for a
// terminal; otherwise one JSON object is written per line.
func NewLogger(w io.Writer, pretty bool, service string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// Version reports the build version: the linker-provided value, then
// SHOPD_VERSION, then "dev".
func Version(build string) string {
	return strings.TrimSpace(FirstNonEmpty(build, os.Getenv("SHOPD_VERSION"), "dev"))
}

// FirstNonEmpty returns the first value that is not blank, unmodified, or ""
// when all are blank.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Package sysutil holds process-level helpers used while booting the
// server: environment flag parsing and global logger setup.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLogLevel maps a LOG_LEVEL value onto a zerolog level. "warning" is
// accepted for warn. Empty or unknown values yield info and ok=false.
func ParseLogLevel(s string) (lvl zerolog.Level, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	switch s {
	case "debug", "info", "warn", "error", "fatal", "panic":
		lvl, _ = zerolog.ParseLevel(s)
		return lvl, true
	}
	return zerolog.InfoLevel, false
}

// SetLogLevel applies s as the global zerolog level and returns the level
// that took effect.
func SetLogLevel(s string) zerolog.Level {
	lvl, _ := ParseLogLevel(s)
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

// LogOptions configures NewLogger.
type LogOptions struct {
	Level   string
	Pretty  bool // human-readable console output instead of JSON
	Service string
	Version string
	Out     io.Writer // defaults to os.Stderr
}

// NewLogger sets the global level and returns a logger stamped with the
// service name and build version.
func NewLogger(o LogOptions) zerolog.Logger {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	if o.Version != "" {
		ctx = ctx.Str("version", o.Version)
	}
	return ctx.Logger()
}

// IsTruthy reports whether an env value means "on": 1, true, yes, y or on,
// in any case.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank, unmodified, or ""
// when every value is blank.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

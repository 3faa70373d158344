// Package telemetry is a thin leveled wrapper around the standard log
// package; plain console logging is all the controller needs, so there is
// no structured-logging dependency for a concern this small.
package telemetry

import (
	"io"
	"log"
	"os"
)

// Logger prefixes every line with a level tag, built on one *log.Logger per
// level. All four levels write to the same writer; there is no per-level
// switch to silence one of them.
type Logger struct {
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// New builds a Logger writing to w with the standard date/time flags.
func New(w io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		debug: log.New(w, "DEBUG ", flags),
		info:  log.New(w, "INFO  ", flags),
		warn:  log.New(w, "WARN  ", flags),
		err:   log.New(w, "ERROR ", flags),
	}
}

// Default builds a Logger writing to os.Stderr.
func Default() *Logger { return New(os.Stderr) }

// Discard builds a Logger that drops every line, the zero-cost default
// passed to a DpSolver or leg driver built without an explicit logger.
func Discard() *Logger { return New(io.Discard) }

func (l *Logger) Debugf(format string, args ...any) { l.debug.Printf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.info.Printf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.warn.Printf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.err.Printf(format, args...) }

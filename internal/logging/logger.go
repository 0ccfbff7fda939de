package logging

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Logger writes progress chatter for the flash pipeline. Verbose lines are
// dropped unless Verbose is set.
type Logger struct {
	Writer  io.Writer
	Verbose bool
	Prefix  string
}

func New(writer io.Writer, verbose bool) Logger {
	return Logger{Writer: writer, Verbose: verbose}
}

// With returns a copy of l whose lines carry an extra "name: " prefix.
func (l Logger) With(name string) Logger {
	l.Prefix = strings.TrimSpace(l.Prefix + name + ": ")
	if l.Prefix != "" {
		l.Prefix += " "
	}
	return l
}

func (l Logger) Infof(format string, args ...any) {
	if l.Writer == nil {
		return
	}
	fmt.Fprintf(l.Writer, l.Prefix+format+"\n", args...)
}

func (l Logger) Warnf(format string, args ...any) {
	l.Infof("Warning: "+format, args...)
}

func (l Logger) Verbosef(format string, args ...any) {
	if !l.Verbose {
		return
	}
	l.Infof("Verbose: "+format, args...)
}

// Measure returns a stop function that logs the elapsed time when called.
func (l Logger) Measure(label string) func() {
	if !l.Verbose {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		l.Verbosef("%s took %s", label, elapsed)
	}
}

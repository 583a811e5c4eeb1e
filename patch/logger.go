// Package patch implements the offline image patcher: it loads a GCM disc
// image, extracts and parses the embedded DOL, injects a precompiled
// payload as a new text section with the original entry point stamped
// into it, rewrites the DOL entry point, and writes the patched image
// back in place or to a relocated offset.
package patch

import (
	"fmt"
	"io"
)

// Verbosity levels, matching the original patcher's --log flag.
const (
	LevelError = 0
	LevelInfo  = 1
	LevelDebug = 2
)

// Logger writes leveled progress messages to an io.Writer, gated by a
// verbosity threshold the same way the original CLI's --log N did.
type Logger struct {
	Out   io.Writer
	Level int
}

// NewLogger returns a Logger writing to out at the given verbosity level.
func NewLogger(out io.Writer, level int) *Logger {
	return &Logger{Out: out, Level: level}
}

// Errorf always prints: errors are level 0 and visible regardless of
// verbosity.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args...)
}

// Infof prints at verbosity >= 1.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args...)
}

// Debugf prints at verbosity >= 2.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args...)
}

// Printf writes unconditionally, regardless of verbosity level. It backs
// explicit print requests like --print-dol that should show up even when
// --log is left at its default.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || l.Out == nil {
		return
	}
	fmt.Fprintf(l.Out, format+"\n", args...)
}

func (l *Logger) printf(level int, format string, args ...interface{}) {
	if l == nil || l.Out == nil || l.Level < level {
		return
	}
	fmt.Fprintf(l.Out, format+"\n", args...)
}

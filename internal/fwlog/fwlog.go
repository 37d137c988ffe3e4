// Package fwlog is xtask's build/run progress printer: leveled, prefixed
// lines written to a color-capable writer, mirroring the
// "xtask: mode: ..."-style progress lines the original rustsbi-qemu xtask
// prints, colorized the way TinyGo's own build driver colorizes its
// command-echo output (github.com/mattn/go-colorable wraps os.Stdout/Stderr
// so ANSI escapes still work on Windows consoles).
package fwlog

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
)

// Level is a coarse verbosity level, checked before a message is written.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelColor = map[Level]string{
	LevelError: "\x1b[31m",
	LevelWarn:  "\x1b[33m",
	LevelInfo:  "\x1b[36m",
	LevelDebug: "\x1b[90m",
}

const colorReset = "\x1b[0m"

// Logger writes leveled, prefixed progress lines to an io.Writer.
type Logger struct {
	out   io.Writer
	level Level
	color bool
}

// New builds a Logger at the given verbosity that writes to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{out: w, level: level, color: true}
}

// NewStderr builds a Logger over a colorable stderr, the default xtask uses
// for every subcommand's progress output.
func NewStderr(level Level) *Logger {
	return New(colorable.NewColorable(os.Stderr), level)
}

// DisableColor turns off ANSI coloring, for non-tty output (CI logs,
// redirected files).
func (l *Logger) DisableColor() { l.color = false }

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if level > l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.color {
		fmt.Fprintf(l.out, "%s%s: %s%s\n", levelColor[level], prefix, msg, colorReset)
	} else {
		fmt.Fprintf(l.out, "%s: %s\n", prefix, msg)
	}
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "xtask error", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "xtask warn", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "xtask", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "xtask debug", format, args...) }

// Command echoes a shelled-out command the way xtask_build_sbi's Rust
// original implicitly does by inheriting the child's stdout/stderr: one
// line per invocation, at info level.
func (l *Logger) Command(name string, args ...string) {
	l.log(LevelInfo, "xtask", "%s %v", name, args)
}

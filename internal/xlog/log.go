// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package xlog is a small structured logger in the spirit of the
// go-ethereum "log" package: leveled calls take a message followed by
// alternating key/value pairs. It never forces a concrete logger on
// callers of consensus/quasar — they depend only on the Logger interface.
package xlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a log severity, ordered from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal structured-logging surface consensus/quasar depends
// on. Any of the concrete loggers in this package satisfy it, and so does a
// test double.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// With returns a Logger that prepends the given key/value pairs to
	// every subsequent call, without mutating the receiver.
	With(kv ...any) Logger
}

// termLogger writes colorized, human-readable lines to an io.Writer —
// typically a colorable-wrapped stdout/stderr when attached to a terminal.
type termLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  Level
	prefix []any
	colors bool
}

// New returns a Logger that writes level lines >= minLevel to stderr,
// colorizing the level tag when stderr is a terminal.
func New(minLevel Level) Logger {
	var out io.Writer = os.Stderr
	colors := false
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = colorable.NewColorable(f)
		colors = true
	}
	return &termLogger{mu: &sync.Mutex{}, out: out, level: minLevel, colors: colors}
}

// NewFile returns a Logger that writes to a rotating file at path, using
// lumberjack for size-based rotation. Intended for long-running deployments
// where terminal coloring is irrelevant.
func NewFile(path string, minLevel Level, maxSizeMB, maxBackups, maxAgeDays int) Logger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return &termLogger{mu: &sync.Mutex{}, out: lj, level: minLevel, colors: false}
}

// Discard returns a Logger that drops every call; useful in tests that
// don't care about log output but must supply some Logger.
func Discard() Logger {
	return &termLogger{mu: &sync.Mutex{}, out: io.Discard, level: LevelError + 1}
}

func (l *termLogger) With(kv ...any) Logger {
	prefix := make([]any, 0, len(l.prefix)+len(kv))
	prefix = append(prefix, l.prefix...)
	prefix = append(prefix, kv...)
	return &termLogger{mu: l.mu, out: l.out, level: l.level, prefix: prefix, colors: l.colors}
}

func (l *termLogger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }
func (l *termLogger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *termLogger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *termLogger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }

func (l *termLogger) log(lvl Level, msg string, kv []any) {
	if lvl < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	if l.colors {
		b.WriteString(levelColor(lvl).Sprint(lvl.String()))
	} else {
		b.WriteString(lvl.String())
	}
	b.WriteByte(' ')
	b.WriteString(msg)

	all := make([]any, 0, len(l.prefix)+len(kv))
	all = append(all, l.prefix...)
	all = append(all, kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

func levelColor(l Level) *color.Color {
	switch l {
	case LevelDebug:
		return color.New(color.FgHiBlack)
	case LevelInfo:
		return color.New(color.FgCyan)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelError:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

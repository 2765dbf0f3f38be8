// Package logger provides the named, levelled logger used across the analytics bridge.
//
// The level ladder is log < error < warn < info < debug: a logger configured at a
// given level emits that level and every level before it. Output is zerolog JSON by
// default; set ANALYTICS_LOG_FORMAT=console for human-readable lines.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel represents a logging level name.
type LogLevel string

const (
	LogLevelLog   LogLevel = "log"
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// Environment variables read at construction.
const (
	LevelEnvVar  = "ANALYTICS_LOG_LEVEL"
	FormatEnvVar = "ANALYTICS_LOG_FORMAT"
)

// logLevels is ordered; a logger's level is an index into it.
var logLevels = []LogLevel{LogLevelLog, LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug}

// zerologLevels mirrors logLevels so entries written through Zerolog() obey the
// same threshold. "log" entries use zerolog.Log and pass any level but Disabled.
var zerologLevels = []zerolog.Level{zerolog.PanicLevel, zerolog.ErrorLevel, zerolog.WarnLevel, zerolog.InfoLevel, zerolog.DebugLevel}

// Logger is a named logger with a level threshold.
type Logger struct {
	name  string
	level int
	root  zerolog.Logger
	zl    zerolog.Logger
}

// New creates a logger at "info" writing to stderr.
func New(name string) *Logger {
	return NewWithLevel(name, string(LogLevelInfo), os.Stderr)
}

// NewWithLevel creates a logger with an explicit level and output.
// ANALYTICS_LOG_LEVEL, when set, takes precedence over levelStr.
func NewWithLevel(name string, levelStr string, output io.Writer) *Logger {
	if envLevel := os.Getenv(LevelEnvVar); envLevel != "" {
		levelStr = envLevel
	}

	levelIndex := indexOf(levelStr)
	if levelIndex == -1 {
		levelIndex = 3 // info
	}

	if output == nil {
		output = os.Stderr
	}
	if strings.EqualFold(os.Getenv(FormatEnvVar), "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05.000"}
	}

	root := zerolog.New(output).Level(zerologLevels[levelIndex]).With().Timestamp().Logger()

	return &Logger{
		name:  name,
		level: levelIndex,
		root:  root,
		zl:    root.With().Str("logger", name).Logger(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{name: "nop", level: -1, root: zerolog.Nop(), zl: zerolog.Nop()}
}

func indexOf(levelStr string) int {
	levelStr = strings.ToLower(strings.TrimSpace(levelStr))
	if levelStr == "warning" {
		levelStr = string(LogLevelWarn)
	}
	for i, l := range logLevels {
		if string(l) == levelStr {
			return i
		}
	}
	return -1
}

// Named returns a child logger sharing level and output, tagged with a sub-name.
func (l *Logger) Named(sub string) *Logger {
	name := l.name + "." + sub
	return &Logger{
		name:  name,
		level: l.level,
		root:  l.root,
		zl:    l.root.With().Str("logger", name).Logger(),
	}
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level LogLevel) bool {
	idx := indexOf(string(level))
	return idx >= 0 && l.level >= idx
}

func message(args []interface{}) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%v", args[0])
	default:
		return fmt.Sprint(args...)
	}
}

// Log writes at the "log" level, which is only silenced by Nop.
func (l *Logger) Log(args ...interface{}) {
	if l.level < 0 {
		return
	}
	l.zl.Log().Str("level", string(LogLevelLog)).Msg(message(args))
}

func (l *Logger) Error(args ...interface{}) {
	if l.level < 1 {
		return
	}
	l.zl.Error().Msg(message(args))
}

func (l *Logger) Warn(args ...interface{}) {
	if l.level < 2 {
		return
	}
	l.zl.Warn().Msg(message(args))
}

func (l *Logger) Info(args ...interface{}) {
	if l.level < 3 {
		return
	}
	l.zl.Info().Msg(message(args))
}

// Debug writes a structured debug entry. A single argument is attached as "args"
// directly; several are attached as a list.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level < 4 {
		return
	}

	ev := l.zl.Debug()
	switch len(args) {
	case 0:
	case 1:
		ev = ev.Interface("args", args[0])
	default:
		ev = ev.Interface("args", args)
	}
	ev.Msg(msg)
}

// GetName returns the logger's name.
func (l *Logger) GetName() string {
	return l.name
}

func (l *Logger) Logf(format string, args ...interface{}) {
	l.Log(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

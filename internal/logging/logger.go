// Package logging wraps logrus into the leveled logger shape the
// original server's internal/common logger exposed, so the rest of
// the codebase logs through one small surface instead of importing
// logrus directly everywhere.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a leveled logger backed by logrus.
type Logger struct {
	entry *logrus.Entry
}

// New builds a Logger writing to stderr at the given level ("trace",
// "debug", "info", "warn", "error", "fatal"). An unrecognized level
// falls back to info, matching the teacher's default-case behavior.
func New(level string, jsonFormat bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a Logger with an additional structured field attached
// to every subsequent entry, for per-connection or per-command context.
func (lg *Logger) With(key string, value any) *Logger {
	return &Logger{entry: lg.entry.WithField(key, value)}
}

func (lg *Logger) Info(args ...any)  { lg.entry.Info(args...) }
func (lg *Logger) Warn(args ...any)  { lg.entry.Warn(args...) }
func (lg *Logger) Error(args ...any) { lg.entry.Error(args...) }
func (lg *Logger) Debug(args ...any) { lg.entry.Debug(args...) }
func (lg *Logger) Fatal(args ...any) { lg.entry.Fatal(args...) }

func (lg *Logger) Infof(format string, args ...any)  { lg.entry.Infof(format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.entry.Warnf(format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.entry.Errorf(format, args...) }
func (lg *Logger) Debugf(format string, args ...any) { lg.entry.Debugf(format, args...) }
func (lg *Logger) Fatalf(format string, args ...any) { lg.entry.Fatalf(format, args...) }

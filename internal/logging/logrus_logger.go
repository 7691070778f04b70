// Package logging provides a common interface and setup for application-wide logging.
// This file implements the Logger interface on top of logrus, which is the concrete
// backend used by the hostbridge binary.
package logging

// file: internal/logging/logrus_logger.go

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a *logrus.Entry to the Logger interface.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a Logger backed by logrus, writing to out at the given
// level. Unknown level strings fall back to "info".
func NewLogrusLogger(out io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// fields converts alternating key/value args into logrus fields.
// A trailing key without a value is recorded under "EXTRA_VALUE_AT_END".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "badKey"
		}
		f[key] = args[i+1]
	}
	if len(args)%2 != 0 {
		f["EXTRA_VALUE_AT_END"] = args[len(args)-1]
	}
	return f
}

// Debug implements Logger.
func (l *logrusLogger) Debug(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Debug(msg)
}

// Info implements Logger.
func (l *logrusLogger) Info(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Info(msg)
}

// Warn implements Logger.
func (l *logrusLogger) Warn(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Warn(msg)
}

// Error implements Logger.
func (l *logrusLogger) Error(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Error(msg)
}

// WithContext implements Logger.
func (l *logrusLogger) WithContext(ctx context.Context) Logger {
	return &logrusLogger{entry: l.entry.WithContext(ctx)}
}

// WithField implements Logger.
func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

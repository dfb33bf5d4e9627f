// Package wlog wraps logrus the way nabbar-golib/logger wraps it: a small
// set of canonical structured-field names plus a thin indirection so the
// rest of the engine depends on an interface, not a concrete logger.
package wlog

import (
	"github.com/sirupsen/logrus"
)

// Canonical field names, matching nabbar-golib/logger/types.Field* constants.
const (
	FieldError = "error"
	FieldRoute = "route"
	FieldAddr  = "addr"
	FieldConn  = "conn_id"
)

// Logger is the minimal leveled-logging surface the engine depends on.
// Reactor, engine, and middleware packages take a Logger, never
// a concrete *logrus.Logger, so tests can inject a discard logger.
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type entry struct {
	e *logrus.Entry
}

// New wraps a logrus.Logger. A nil logger falls back to logrus's standard
// logger, matching the teacher's "never nil, always usable" logging shape.
func New(base *logrus.Logger) Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &entry{e: logrus.NewEntry(base)}
}

func (l *entry) WithField(key string, value any) Logger {
	return &entry{e: l.e.WithField(key, value)}
}

func (l *entry) WithFields(fields map[string]any) Logger {
	return &entry{e: l.e.WithFields(logrus.Fields(fields))}
}

func (l *entry) Debugf(format string, args ...any) { l.e.Debugf(format, args...) }
func (l *entry) Infof(format string, args ...any)  { l.e.Infof(format, args...) }
func (l *entry) Warnf(format string, args ...any)  { l.e.Warnf(format, args...) }
func (l *entry) Errorf(format string, args ...any) { l.e.Errorf(format, args...) }

// Discard returns a Logger that drops everything, for tests.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return New(l)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

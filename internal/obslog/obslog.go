// Package obslog threads a single structured logger through the pipeline
// via an explicit context value, following the Design Note in spec.md §9:
// replace ad-hoc process-wide singletons with an explicit context value
// initialized at entry. Mirrors the *logrus.Logger + logrus.Fields idiom
// used throughout the teacher's internal/router package.
package obslog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds a logger at the given level ("debug", "info", "warn", "error")
// and format ("json" or "text").
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// WithLogger returns a child context carrying log.
func WithLogger(ctx context.Context, log *logrus.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// From extracts the logger from ctx, or a discard-nothing default logger if
// none was set — never nil so callers never need a nil check.
func From(ctx context.Context) *logrus.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*logrus.Logger); ok && log != nil {
		return log
	}
	return logrus.StandardLogger()
}

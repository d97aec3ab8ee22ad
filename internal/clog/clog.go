// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clog provides context aware logging. It stores an invocation id
// and arbitrary fields in the context so every log line emitted while
// building a chunk can be traced back to the invocation and chunk that
// produced it, without threading a *log.Logger through every call site.
package clog

import (
	"context"

	"github.com/charmbracelet/log"
)

type contextKeyType int

var contextKey contextKeyType

// Logger holds fields attached to a context.
type Logger struct {
	base   *log.Logger
	fields []any
}

// New creates a Logger backed by the default charmbracelet logger.
func New() *Logger {
	return &Logger{base: log.Default()}
}

// NewContext attaches logger to ctx.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext returns the logger in ctx, or a fresh default logger.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey).(*Logger)
	if !ok || logger == nil {
		return New()
	}
	return logger
}

// With returns a sub-logger with additional key-value fields, the way
// the teacher's o11y/clog.Span attaches trace/spanID/labels to a sub logger.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		l = New()
	}
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)
	return &Logger{base: l.base, fields: fields}
}

func (l *Logger) logger() *log.Logger {
	if l == nil || l.base == nil {
		return log.Default()
	}
	if len(l.fields) == 0 {
		return l.base
	}
	return l.base.With(l.fields...)
}

// Infof logs an info-level message with the context's fields.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logger().Infof(format, args...)
}

// Warnf logs a warn-level message with the context's fields.
func Warnf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logger().Warnf(format, args...)
}

// Errorf logs an error-level message with the context's fields.
func Errorf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).logger().Errorf(format, args...)
}

// With returns a ctx carrying a logger with the additional fields.
func With(ctx context.Context, kv ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(kv...))
}

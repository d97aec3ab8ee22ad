// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clog_test

import (
	"context"
	"testing"

	"github.com/jetcirc/ibuild/internal/clog"
)

func TestFromContextReturnsDefaultWhenUntagged(t *testing.T) {
	if l := clog.FromContext(context.Background()); l == nil {
		t.Fatalf("FromContext on a plain context returned nil")
	}
}

func TestNewContextRoundTrip(t *testing.T) {
	logger := clog.New().With("k", "v")
	ctx := clog.NewContext(context.Background(), logger)
	if got := clog.FromContext(ctx); got != logger {
		t.Errorf("FromContext(NewContext(ctx, logger)) did not return the same logger instance")
	}
}

func TestWithChainsOntoExistingContextLogger(t *testing.T) {
	base := clog.NewContext(context.Background(), clog.New().With("invocation", "abc123"))
	tagged := clog.With(base, "chunk", "chunk(lib)")

	if clog.FromContext(tagged) == clog.FromContext(base) {
		t.Errorf("With must return a context carrying a distinct sub-logger, not mutate the parent's")
	}
}

func TestWithOnNilLoggerCreatesDefault(t *testing.T) {
	var l *clog.Logger
	if got := l.With("k", "v"); got == nil {
		t.Fatalf("(*Logger)(nil).With(...) returned nil; want a fresh logger")
	}
}

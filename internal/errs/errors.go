// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errs defines the driver's error taxonomy (§7), grounded on the
// teacher's build/plan.go sentinel- and typed-error pattern
// (ErrNoTarget, TargetError, DependencyCycleError).
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCanceled is returned when an invocation observes its cancel
	// token fired.
	ErrCanceled = errors.New("build canceled")

	// ErrHeterogeneousChunk marks the illegal case of a multi-target
	// chunk containing a non-module target (§4.6 case c).
	ErrHeterogeneousChunk = errors.New("chunk mixes module-based and non-module targets")
)

// StopBuildError wraps a builder's ABORT exit code (§7 "Stop-build"):
// propagation is a normal return from build(), not a thrown failure, but
// modeling it as an error lets the Chunk Runner and Lifecycle Coordinator
// share one control-flow path with genuine build errors.
type StopBuildError struct {
	Builder string
	Reason  string
}

func (e *StopBuildError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("build stopped by %s", e.Builder)
	}
	return fmt.Sprintf("build stopped by %s: %s", e.Builder, e.Reason)
}

// RebuildRequestedError marks a data-corruption outcome (§7): the caller
// is expected to retry the invocation with scope.IsRebuild() true.
type RebuildRequestedError struct {
	Cause error
}

func (e *RebuildRequestedError) Error() string {
	return fmt.Sprintf("rebuild requested: %v", e.Cause)
}

func (e *RebuildRequestedError) Unwrap() error { return e.Cause }

// DependencyCycleError reports a dependency cycle the Chunk Graph could
// not resolve into chunks (a TargetIndex invariant violation: chunks are
// expected to already be SCC-contracted).
type DependencyCycleError struct {
	Targets []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Targets, " -> "))
}

// AssertionError marks a scheduler invariant violation (§7 "Internal
// assertion"), e.g. a MarkFinished call observing a missing dependency
// edge.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("internal assertion failed: %s", e.Msg)
}

// IsCorruption reports whether err (or its chain) indicates storage
// corruption that should be escalated to a rebuild-requested outcome.
func IsCorruption(err error) bool {
	var c interface{ Corrupted() bool }
	if errors.As(err, &c) {
		return c.Corrupted()
	}
	return false
}

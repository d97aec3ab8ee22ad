// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package errs_test

import (
	"errors"
	"testing"

	"github.com/jetcirc/ibuild/internal/errs"
)

type fakeCorrupt struct{ corrupted bool }

func (e fakeCorrupt) Error() string   { return "fake corrupt" }
func (e fakeCorrupt) Corrupted() bool { return e.corrupted }

func TestIsCorruptionUnwrapsChain(t *testing.T) {
	wrapped := &errs.RebuildRequestedError{Cause: fakeCorrupt{corrupted: true}}
	if !errs.IsCorruption(wrapped) {
		t.Errorf("IsCorruption(wrapped corrupt cause)=false; want true")
	}
	if errs.IsCorruption(errors.New("plain")) {
		t.Errorf("IsCorruption(plain error)=true; want false")
	}
	if errs.IsCorruption(&errs.RebuildRequestedError{Cause: fakeCorrupt{corrupted: false}}) {
		t.Errorf("IsCorruption(cause reporting false)=true; want false")
	}
}

func TestStopBuildErrorMessage(t *testing.T) {
	withReason := &errs.StopBuildError{Builder: "javac", Reason: "fatal error"}
	if got, want := withReason.Error(), "build stopped by javac: fatal error"; got != want {
		t.Errorf("Error()=%q; want %q", got, want)
	}
	noReason := &errs.StopBuildError{Builder: "javac"}
	if got, want := noReason.Error(), "build stopped by javac"; got != want {
		t.Errorf("Error()=%q; want %q", got, want)
	}
}

func TestDependencyCycleErrorMessage(t *testing.T) {
	err := &errs.DependencyCycleError{Targets: []string{"a", "b", "a"}}
	if got, want := err.Error(), "dependency cycle: a -> b -> a"; got != want {
		t.Errorf("Error()=%q; want %q", got, want)
	}
}

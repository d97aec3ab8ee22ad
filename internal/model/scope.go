// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package model

// Scope is an immutable predicate object describing what an invocation
// affects.
type Scope interface {
	// Affects reports whether target is in scope.
	Affects(target *Target) bool
	// AffectsFile reports whether file (exec-root relative) of target is
	// in scope.
	AffectsFile(target *Target, file string) bool
	// IsForced reports whether target must be fully recompiled regardless
	// of dirtiness.
	IsForced(target *Target) bool
	// IsRebuild reports whether this is a whole-project rebuild.
	IsRebuild() bool
}

// AllScope is a Scope that affects every target and file, optionally
// forcing full recompilation and/or a whole-project rebuild. It is the
// scope fakes and the CLI use when no finer-grained selection is given.
type AllScope struct {
	Forced  bool
	Rebuild bool
}

func (s AllScope) Affects(*Target) bool                { return true }
func (s AllScope) AffectsFile(*Target, string) bool     { return true }
func (s AllScope) IsForced(*Target) bool                { return s.Forced }
func (s AllScope) IsRebuild() bool                      { return s.Rebuild }

// TargetScope affects only the named targets, and files under them.
type TargetScope struct {
	IDs     map[TargetID]bool
	Forced  map[TargetID]bool
	Rebuild bool
}

func (s TargetScope) Affects(t *Target) bool {
	if t == nil {
		return false
	}
	return s.IDs[t.ID]
}

func (s TargetScope) AffectsFile(t *Target, _ string) bool {
	return s.Affects(t)
}

func (s TargetScope) IsForced(t *Target) bool {
	if t == nil || s.Forced == nil {
		return false
	}
	return s.Forced[t.ID]
}

func (s TargetScope) IsRebuild() bool { return s.Rebuild }

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/dirtystate"
	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/model"
)

// sampleProject builds the fixed three-target demo graph the build
// subcommand drives: "gen" is a non-module target built through the
// single-target path, "lib" is a module-based target depending on it,
// and "app" is a module-based target depending on "lib" — exercising
// both Chunk Runner paths in one invocation.
func sampleProject() (*fakebuild.Index, clean.FS) {
	gen := &model.Target{ID: "gen", Name: "gen", Kind: model.KindOther}
	lib := &model.Target{ID: "lib", Name: "lib", Kind: model.KindModuleBased}
	app := &model.Target{ID: "app", Name: "app", Kind: model.KindModuleBased}

	index := fakebuild.NewIndex(
		[]*model.Target{gen, lib, app},
		map[model.TargetID][]model.TargetID{
			"lib": {"gen"},
			"app": {"lib"},
		},
	)
	return index, clean.OSFS{}
}

// seedDirty marks the sample project's module-based sources dirty so a
// fresh state directory has something to build on its first invocation.
func seedDirty(dirty *dirtystate.Store) {
	dirty.MarkDirty("lib", "src/lib", "lib.src")
	dirty.MarkDirty("app", "src/app", "app.src")
}

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package model_test

import (
	"testing"

	"github.com/jetcirc/ibuild/internal/model"
)

func TestExitCodeString(t *testing.T) {
	cases := []struct {
		code model.ExitCode
		want string
	}{
		{model.NothingDone, "NOTHING_DONE"},
		{model.OK, "OK"},
		{model.Abort, "ABORT"},
		{model.AdditionalPassRequired, "ADDITIONAL_PASS_REQUIRED"},
		{model.ChunkRebuildRequired, "CHUNK_REBUILD_REQUIRED"},
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Errorf("%d.String()=%q; want %q", c.code, got, c.want)
		}
	}
}

func TestCategoriesRunOrder(t *testing.T) {
	want := []model.Category{model.SourceGenerating, model.Translating, model.ClassPostProcessing, model.Packaging}
	if len(model.Categories) != len(want) {
		t.Fatalf("len(Categories)=%d; want %d", len(model.Categories), len(want))
	}
	for i, c := range want {
		if model.Categories[i] != c {
			t.Errorf("Categories[%d]=%v; want %v", i, model.Categories[i], c)
		}
	}
}

func TestTargetChunkIsModuleChunk(t *testing.T) {
	moduleTarget := &model.Target{ID: "lib", Kind: model.KindModuleBased}
	otherTarget := &model.Target{ID: "art", Kind: model.KindOther}

	moduleChunk := &model.TargetChunk{Targets: []*model.Target{moduleTarget}}
	if !moduleChunk.IsModuleChunk() {
		t.Errorf("IsModuleChunk()=false for an all-module chunk; want true")
	}

	mixed := &model.TargetChunk{Targets: []*model.Target{moduleTarget, otherTarget}}
	if mixed.IsModuleChunk() {
		t.Errorf("IsModuleChunk()=true for a mixed chunk; want false")
	}
	if got := mixed.NonModuleTargets(); len(got) != 1 || got[0] != otherTarget {
		t.Errorf("NonModuleTargets()=%v; want [art]", got)
	}
}

func TestAllScopeAffectsEverything(t *testing.T) {
	s := model.AllScope{Forced: true, Rebuild: true}
	target := &model.Target{ID: "lib"}
	if !s.Affects(target) || !s.AffectsFile(target, "a.src") {
		t.Errorf("AllScope must affect every target and file")
	}
	if !s.IsForced(target) || !s.IsRebuild() {
		t.Errorf("AllScope{Forced:true, Rebuild:true} not reflected by accessors")
	}
}

func TestTargetScopeRestrictsToNamedTargets(t *testing.T) {
	s := model.TargetScope{
		IDs:    map[model.TargetID]bool{"lib": true},
		Forced: map[model.TargetID]bool{"lib": true},
	}
	lib := &model.Target{ID: "lib"}
	app := &model.Target{ID: "app"}

	if !s.Affects(lib) || s.Affects(app) {
		t.Errorf("TargetScope must affect only named targets")
	}
	if !s.IsForced(lib) || s.IsForced(app) {
		t.Errorf("IsForced must follow the Forced set, not Affects")
	}
	if s.Affects(nil) {
		t.Errorf("Affects(nil)=true; want false")
	}
}

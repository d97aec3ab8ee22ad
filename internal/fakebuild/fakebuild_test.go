// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fakebuild_test

import (
	"context"
	"testing"

	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/dirtystate"
	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/model"
)

func indexOf(t *testing.T, chunks []*model.TargetChunk, id model.TargetID) int {
	t.Helper()
	for i, c := range chunks {
		for _, target := range c.Targets {
			if target.ID == id {
				return i
			}
		}
	}
	t.Fatalf("target %s not found in any chunk", id)
	return -1
}

func TestSortedTargetChunksTopologicalOrder(t *testing.T) {
	gen := &model.Target{ID: "gen", Name: "gen"}
	lib := &model.Target{ID: "lib", Name: "lib", Kind: model.KindModuleBased}
	app := &model.Target{ID: "app", Name: "app", Kind: model.KindModuleBased}
	idx := fakebuild.NewIndex(
		[]*model.Target{gen, lib, app},
		map[model.TargetID][]model.TargetID{
			"lib": {"gen"},
			"app": {"lib"},
		},
	)

	chunks, err := idx.SortedTargetChunks(context.Background())
	if err != nil {
		t.Fatalf("SortedTargetChunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("len(chunks)=%d; want 3 (no cycles)", len(chunks))
	}
	if g, l, a := indexOf(t, chunks, "gen"), indexOf(t, chunks, "lib"), indexOf(t, chunks, "app"); !(g < l && l < a) {
		t.Errorf("order gen=%d lib=%d app=%d; want predecessors first", g, l, a)
	}
}

func TestSortedTargetChunksGroupsCycle(t *testing.T) {
	a := &model.Target{ID: "a", Name: "a", Kind: model.KindModuleBased}
	b := &model.Target{ID: "b", Name: "b", Kind: model.KindModuleBased}
	idx := fakebuild.NewIndex(
		[]*model.Target{a, b},
		map[model.TargetID][]model.TargetID{
			"a": {"b"},
			"b": {"a"},
		},
	)

	chunks, err := idx.SortedTargetChunks(context.Background())
	if err != nil {
		t.Fatalf("SortedTargetChunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks)=%d; want 1 (a,b form one cycle)", len(chunks))
	}
	if len(chunks[0].Targets) != 2 {
		t.Errorf("chunk targets=%v; want both a and b", chunks[0].Targets)
	}
}

func TestEchoModuleBuilderClearsProcessedDirtyFiles(t *testing.T) {
	// Regression coverage for a real bug: an earlier draft used
	// SourcesToRecompile (read-only) instead of ProcessFilesToRecompile
	// (keep=false drops the entry), which left the dirty set non-empty
	// across rounds and would have looped forever in a module-level
	// builders pipeline driven to convergence.
	lib := &model.Target{ID: "lib", Name: "lib", Kind: model.KindModuleBased}
	chunk := &model.TargetChunk{ID: "chunk(lib)", Targets: []*model.Target{lib}}

	dirty := dirtystate.New()
	dirty.MarkDirty(lib.ID, "src", "a.src")
	dirty.MarkDirty(lib.ID, "src", "b.src")

	eb := &fakebuild.EchoModuleBuilder{Cat: model.Translating}
	if got := eb.Category(); got != model.Translating {
		t.Errorf("Category()=%v; want Translating", got)
	}
	ctx := buildctx.New(context.Background(), model.AllScope{}, bus.New(), nil, nil, nil)
	out := builder.NewOutputConsumer()

	// Pass one: both dirty sources are processed and cleared.
	if code, err := eb.Build(ctx, chunk, dirty, out); err != nil || code != model.OK {
		t.Fatalf("Build pass 1 = (%v, %v); want (OK, nil)", code, err)
	}
	if dirty.HasDirty(lib.ID) {
		t.Fatalf("HasDirty after pass 1 = true; want false (processed files must be cleared)")
	}
	if len(eb.Calls) != 2 {
		t.Errorf("Calls=%v; want 2 files processed", eb.Calls)
	}

	// Pass two: nothing left dirty, builder reports NOTHING_DONE so the
	// outer pass loop can converge instead of looping forever.
	if code, err := eb.Build(ctx, chunk, dirty, out); err != nil || code != model.NothingDone {
		t.Fatalf("Build pass 2 = (%v, %v); want (NothingDone, nil)", code, err)
	}
}

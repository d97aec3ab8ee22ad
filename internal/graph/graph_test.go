// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package graph_test

import (
	"context"
	"testing"

	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/graph"
	"github.com/jetcirc/ibuild/internal/model"
)

func TestBuildReadyAndMarkFinished(t *testing.T) {
	gen := &model.Target{ID: "gen", Name: "gen"}
	lib := &model.Target{ID: "lib", Name: "lib"}
	app := &model.Target{ID: "app", Name: "app"}
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
	g, err := graph.Build(context.Background(), idx, chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ready := g.Ready()
	if len(ready) != 1 || ready[0].Chunk.Targets[0].ID != "gen" {
		t.Fatalf("initial Ready()=%v; want only the gen chunk", ready)
	}

	readyAfterGen := g.MarkFinished(ready[0])
	if len(readyAfterGen) != 1 || readyAfterGen[0].Chunk.Targets[0].ID != "lib" {
		t.Fatalf("Ready after gen finishes=%v; want only lib", readyAfterGen)
	}

	readyAfterLib := g.MarkFinished(readyAfterGen[0])
	if len(readyAfterLib) != 1 || readyAfterLib[0].Chunk.Targets[0].ID != "app" {
		t.Fatalf("Ready after lib finishes=%v; want only app", readyAfterLib)
	}

	if rest := g.MarkFinished(readyAfterLib[0]); len(rest) != 0 {
		t.Errorf("Ready after app finishes=%v; want none (no dependents)", rest)
	}
}

func TestBuildSelfEdgeWithinChunkIgnored(t *testing.T) {
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
	g, err := graph.Build(context.Background(), idx, chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Tasks()) != 1 {
		t.Fatalf("len(Tasks())=%d; want 1 (a,b collapse into one chunk)", len(g.Tasks()))
	}
	ready := g.Ready()
	if len(ready) != 1 {
		t.Fatalf("Ready()=%v; want the single cyclic chunk immediately ready (no cross-chunk deps)", ready)
	}
}

func TestBuildMissingDependencyChunkErrors(t *testing.T) {
	a := &model.Target{ID: "a", Name: "a"}
	missing := &model.Target{ID: "missing", Name: "missing"}
	chunk := &model.TargetChunk{ID: "chunk(a)", Targets: []*model.Target{a}}

	depIdx := fakebuild.NewIndex([]*model.Target{a, missing}, map[model.TargetID][]model.TargetID{"a": {"missing"}})
	_, err := graph.Build(context.Background(), depIdx, []*model.TargetChunk{chunk})
	if err == nil {
		t.Fatalf("Build with an out-of-chunk dependency = nil error; want one")
	}
}

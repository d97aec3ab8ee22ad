// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package runner_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/dirtystate"
	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/runner"
	"github.com/jetcirc/ibuild/internal/srcout"
)

// memFS is an in-memory clean.FS fake; tests never touch the real disk.
type memFS struct {
	mu      sync.Mutex
	removed []string
}

func (f *memFS) ReadDir(string) ([]string, error)       { return nil, nil }
func (f *memFS) RemoveAll(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}
func (f *memFS) IsEmptyDir(string) (bool, error) { return true, nil }
func (f *memFS) Exists(string) (bool, error)     { return true, nil }

var _ clean.FS = (*memFS)(nil)

// allSafe is a SafeToDelete fake that always treats every output as safe,
// since these tests never register a second source sharing an output.
type allSafe struct{}

func (allSafe) SafeToDeleteOutputs(outputs []string, _ string) []string { return outputs }

func newSourceOutputs() (map[model.TargetID]*srcout.Map, func(model.TargetID) *srcout.Map) {
	maps := map[model.TargetID]*srcout.Map{}
	resolve := func(target model.TargetID) *srcout.Map {
		if maps[target] == nil {
			maps[target] = srcout.New()
		}
		return maps[target]
	}
	return maps, resolve
}

func TestRunSingleTargetBuildsAndClearsDirty(t *testing.T) {
	art := &model.Target{ID: "art", Name: "art", Kind: model.KindOther}
	chunk := &model.TargetChunk{ID: "chunk(art)", Targets: []*model.Target{art}}

	dirty := dirtystate.New()
	_, resolve := newSourceOutputs()
	eb := &fakebuild.EchoTargetBuilder{}
	reg := builder.NewRegistry([]builder.TargetBuilder{eb}, nil, nil, nil)

	b := bus.New()
	var phases []bus.Phase
	b.Subscribe(phaseRecorder(func(p bus.Phase) { phases = append(phases, p) }))

	r := &runner.Runner{
		Registry:        reg,
		Dirty:           dirty,
		Forms:           srcout.NewFormMap(),
		Safe:            allSafe{},
		FS:              &memFS{},
		Cleared:         clean.NewClearedRegistry(),
		SourceOutputFor: resolve,
	}

	ctx := buildctx.New(context.Background(), model.AllScope{}, b, nil, nil, nil)
	if err := r.Run(ctx, chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(eb.Calls) != 1 || eb.Calls[0] != art.ID {
		t.Errorf("Calls=%v; want one call for %s", eb.Calls, art.ID)
	}
	if len(phases) != 2 || phases[0] != bus.Started || phases[1] != bus.Finished {
		t.Errorf("phases=%v; want [Started, Finished]", phases)
	}
}

func TestRunModuleLevelPersistsOutputsAndConverges(t *testing.T) {
	lib := &model.Target{ID: "lib", Name: "lib", Kind: model.KindModuleBased}
	chunk := &model.TargetChunk{ID: "chunk(lib)", Targets: []*model.Target{lib}}

	dirty := dirtystate.New()
	dirty.MarkDirty(lib.ID, "src", "a.src")
	dirty.MarkDirty(lib.ID, "src", "b.src")

	_, resolve := newSourceOutputs()
	eb := &fakebuild.EchoModuleBuilder{Cat: model.Translating}
	reg := builder.NewRegistry(nil, []builder.ModuleLevelBuilder{eb}, nil, nil)

	r := &runner.Runner{
		Registry:        reg,
		Dirty:           dirty,
		Forms:           srcout.NewFormMap(),
		Safe:            allSafe{},
		FS:              &memFS{},
		Cleared:         clean.NewClearedRegistry(),
		SourceOutputFor: resolve,
	}

	ctx := buildctx.New(context.Background(), model.AllScope{}, bus.New(), nil, nil, nil)
	if err := r.Run(ctx, chunk); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if dirty.HasDirty(lib.ID) {
		t.Errorf("HasDirty after Run = true; want false")
	}
	srcOut := resolve(lib.ID)
	if got := srcOut.Outputs("a.src"); len(got) != 1 || got[0] != "a.src.out" {
		t.Errorf("Outputs(a.src)=%v; want [a.src.out] (persisted via OutputConsumer.Persist)", got)
	}
	if got := srcOut.Outputs("b.src"); len(got) != 1 || got[0] != "b.src.out" {
		t.Errorf("Outputs(b.src)=%v; want [b.src.out]", got)
	}
}

type phaseRecorder func(bus.Phase)

func (f phaseRecorder) OnProgress(bus.ProgressMessage)          {}
func (f phaseRecorder) OnCompilerMessage(bus.CompilerMessage)   {}
func (f phaseRecorder) OnBuildingTarget(m bus.BuildingTargetProgressMessage) { f(m.Phase) }
func (f phaseRecorder) OnDoneSomething(bus.DoneSomethingNotification)       {}
func (f phaseRecorder) OnFileDeleted(bus.FileDeletedEvent)                  {}

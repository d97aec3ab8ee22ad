// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package lifecycle_test

import (
	"context"
	"testing"

	"github.com/jetcirc/ibuild/internal/asynctask"
	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/lifecycle"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/runner"
	"github.com/jetcirc/ibuild/internal/store"
)

// nopFS is a clean.FS fake with nothing on disk; every removal is a no-op.
type nopFS struct{}

func (nopFS) ReadDir(string) ([]string, error) { return nil, nil }
func (nopFS) RemoveAll(string) error           { return nil }
func (nopFS) IsEmptyDir(string) (bool, error)  { return true, nil }
func (nopFS) Exists(string) (bool, error)      { return false, nil }

var _ clean.FS = nopFS{}

func TestCoordinatorBuildRunsEveryChunkAndPersists(t *testing.T) {
	root := t.TempDir()
	dm, _, err := store.Open(root)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ts, err := store.OpenTimestampStorage(root)
	if err != nil {
		t.Fatalf("store.OpenTimestampStorage: %v", err)
	}

	gen := &model.Target{ID: "gen", Name: "gen", Kind: model.KindModuleBased}
	lib := &model.Target{ID: "lib", Name: "lib", Kind: model.KindModuleBased}
	idx := fakebuild.NewIndex(
		[]*model.Target{gen, lib},
		map[model.TargetID][]model.TargetID{"lib": {"gen"}},
	)

	dm.DirtyStore().MarkDirty(gen.ID, "src", "a.src")
	dm.DirtyStore().MarkDirty(lib.ID, "src", "b.src")

	echo := &fakebuild.EchoModuleBuilder{Cat: model.Translating}
	reg := builder.NewRegistry(nil, []builder.ModuleLevelBuilder{echo}, nil, nil)

	clearedReg := clean.NewClearedRegistry()
	cleaner := clean.New(nopFS{}, nil, clearedReg, asynctask.New())
	b := bus.New()

	var builtPhases []bus.Phase
	b.Subscribe(phaseSub(func(p bus.Phase) { builtPhases = append(builtPhases, p) }))

	newRunner := func() *runner.Runner {
		return &runner.Runner{
			Registry:        reg,
			Dirty:           dm.DirtyStore(),
			Forms:           dm.GetSourceToFormMap(),
			Safe:            dm.GetOutputToSourceRegistry(),
			FS:              nopFS{},
			Cleared:         clearedReg,
			SourceOutputFor: dm.GetSourceToOutputMap,
		}
	}

	coord := lifecycle.New(idx, reg, dm, ts, cleaner, clearedReg, b, nil, newRunner)
	if err := coord.Build(context.Background(), model.AllScope{}, false); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(echo.Calls) != 2 {
		t.Errorf("echo.Calls=%v; want 2 (one dirty source per chunk)", echo.Calls)
	}
	if len(builtPhases) != 4 {
		t.Errorf("builtPhases=%v; want 4 (Started/Finished per chunk, 2 chunks)", builtPhases)
	}

	reopened, found, err := store.Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !found {
		t.Fatalf("no persisted snapshot found after Build (finalize should have flushed)")
	}
	if got := reopened.GetSourceToOutputMap(gen.ID).Outputs("a.src"); len(got) != 1 || got[0] != "a.src.out" {
		t.Errorf("persisted Outputs(a.src)=%v; want [a.src.out]", got)
	}
}

func TestCoordinatorBuildCleansStoresOnRebuildScope(t *testing.T) {
	root := t.TempDir()
	dm, _, err := store.Open(root)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ts, err := store.OpenTimestampStorage(root)
	if err != nil {
		t.Fatalf("store.OpenTimestampStorage: %v", err)
	}
	dm.GetSourceToOutputMap("stale").AddOutput("x.src", "x.out")

	idx := fakebuild.NewIndex(nil, nil)
	reg := builder.NewRegistry(nil, nil, nil, nil)
	clearedReg := clean.NewClearedRegistry()
	cleaner := clean.New(nopFS{}, nil, clearedReg, asynctask.New())
	b := bus.New()

	newRunner := func() *runner.Runner {
		return &runner.Runner{
			Registry:        reg,
			Dirty:           dm.DirtyStore(),
			Forms:           dm.GetSourceToFormMap(),
			Safe:            dm.GetOutputToSourceRegistry(),
			FS:              nopFS{},
			Cleared:         clearedReg,
			SourceOutputFor: dm.GetSourceToOutputMap,
		}
	}

	coord := lifecycle.New(idx, reg, dm, ts, cleaner, clearedReg, b, nil, newRunner)
	if err := coord.Build(context.Background(), model.AllScope{Rebuild: true}, false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := dm.GetSourceToOutputMap("stale").Outputs("x.src"); len(got) != 0 {
		t.Errorf("Outputs(x.src) after a rebuild-scope Build=%v; want empty (cleanForRebuild wipes the data manager)", got)
	}
}

type phaseSub func(bus.Phase)

func (f phaseSub) OnProgress(bus.ProgressMessage)        {}
func (f phaseSub) OnCompilerMessage(bus.CompilerMessage) {}
func (f phaseSub) OnBuildingTarget(m bus.BuildingTargetProgressMessage) { f(m.Phase) }
func (f phaseSub) OnDoneSomething(bus.DoneSomethingNotification)       {}
func (f phaseSub) OnFileDeleted(bus.FileDeletedEvent)                  {}

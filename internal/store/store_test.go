// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jetcirc/ibuild/internal/errs"
	"github.com/jetcirc/ibuild/internal/store"
)

func TestOpenFreshDirectoryReportsNoPriorSnapshot(t *testing.T) {
	dm, found, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if found {
		t.Errorf("found=true on an empty directory; want false")
	}
	if dm.DirtyStore() == nil {
		t.Errorf("DirtyStore()=nil; want a fresh store")
	}
}

func TestFlushAndReopenRoundTrips(t *testing.T) {
	root := t.TempDir()
	dm, _, err := store.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dm.GetSourceToOutputMap("lib").AddOutput("a.src", "a.out")
	dm.DirtyStore().MarkDirty("lib", "src", "a.src")
	dm.GetSourceToFormMap().Bind("a.form.src", "a.form")

	if err := dm.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened, found, err := store.Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !found {
		t.Fatalf("found=false after a Flush; want true")
	}
	if got := reopened.GetSourceToOutputMap("lib").Outputs("a.src"); len(got) != 1 || got[0] != "a.out" {
		t.Errorf("Outputs(a.src)=%v; want [a.out]", got)
	}
	if !reopened.DirtyStore().HasDirty("lib") {
		t.Errorf("HasDirty(lib)=false after reopen; want true")
	}
	if got := reopened.GetSourceToFormMap().GetState("a.form.src"); len(got) != 1 || got[0] != "a.form" {
		t.Errorf("form state=%v; want [a.form]", got)
	}
}

func TestOpenCorruptSnapshotReturnsCorruptionError(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "ibuild-state.zst"), []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	_, _, err := store.Open(root)
	if err == nil {
		t.Fatalf("Open over a corrupt snapshot = nil error; want one")
	}
	if !errs.IsCorruption(err) {
		t.Errorf("IsCorruption(%v)=false; want true", err)
	}
}

func TestCleanWipesPersistedState(t *testing.T) {
	root := t.TempDir()
	dm, _, err := store.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dm.GetSourceToOutputMap("lib").AddOutput("a.src", "a.out")
	if err := dm.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := dm.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := dm.GetSourceToOutputMap("lib").Outputs("a.src"); len(got) != 0 {
		t.Errorf("Outputs(a.src) after Clean=%v; want empty", got)
	}
	if _, err := os.Stat(filepath.Join(root, "ibuild-state.zst")); !os.IsNotExist(err) {
		t.Errorf("snapshot file still exists after Clean")
	}
}

func TestGetOutputToSourceRegistrySpansTargets(t *testing.T) {
	root := t.TempDir()
	dm, _, err := store.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dm.GetSourceToOutputMap("lib").AddOutput("a.src", "shared.out")
	dm.GetSourceToOutputMap("app").AddOutput("b.src", "shared.out")

	reg := dm.GetOutputToSourceRegistry()
	safe := reg.SafeToDeleteOutputs([]string{"shared.out"}, "a.src")
	if len(safe) != 0 {
		t.Errorf("SafeToDeleteOutputs=%v; want empty (app's b.src still claims shared.out)", safe)
	}
}

func TestTimestampStorageForceAndReopen(t *testing.T) {
	root := t.TempDir()
	ts, err := store.OpenTimestampStorage(root)
	if err != nil {
		t.Fatalf("OpenTimestampStorage: %v", err)
	}
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ts.Update(stamp)
	if err := ts.Force(); err != nil {
		t.Fatalf("Force: %v", err)
	}

	reopened, err := store.OpenTimestampStorage(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Last().Equal(stamp) {
		t.Errorf("Last()=%v; want %v", reopened.Last(), stamp)
	}
}

func TestTimestampStorageUpdateIsMonotonic(t *testing.T) {
	ts, err := store.OpenTimestampStorage(t.TempDir())
	if err != nil {
		t.Fatalf("OpenTimestampStorage: %v", err)
	}
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.Update(later)
	ts.Update(earlier)
	if !ts.Last().Equal(later) {
		t.Errorf("Last()=%v; want %v (later stamp wins)", ts.Last(), later)
	}
}

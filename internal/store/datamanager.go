// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package store

import (
	"path/filepath"
	"sync"

	"github.com/jetcirc/ibuild/internal/dirtystate"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/srcout"
)

const version = 1

// DataManager owns every persistent store the driver's contract requires
// (§6): the dirty-state store, per-target source<->output maps, and the
// source-to-form map, plus their on-disk snapshot under root.
type DataManager struct {
	root string

	mu             sync.Mutex
	dirty          *dirtystate.Store
	sourceToOutput map[model.TargetID]*srcout.Map
	formMap        *srcout.FormMap
}

// snapshot is the whole-project persisted state.
type snapshot struct {
	Version   int                                     `json:"version"`
	Dirty     dirtystate.Snapshot                      `json:"dirty"`
	SrcOut    map[model.TargetID]srcout.Snapshot       `json:"src_out"`
	Forms     map[string][]string                      `json:"forms"`
}

// Open loads persisted state from root if present, or starts fresh.
// A corrupted snapshot is surfaced as a *CorruptionError so the caller can
// classify it per §7 and retry with isRebuild=true. The second return
// value reports whether a prior snapshot was found (false on a brand-new
// state directory), so callers can tell a first invocation apart from a
// resumed one without reaching into storage internals.
func Open(root string) (*DataManager, bool, error) {
	dm := &DataManager{
		root:           root,
		sourceToOutput: map[model.TargetID]*srcout.Map{},
		formMap:        srcout.NewFormMap(),
	}
	var snap snapshot
	err := readCompressed(dm.path(), &snap)
	switch {
	case err == nil:
		dm.dirty = dirtystate.Import(snap.Dirty)
		for target, s := range snap.SrcOut {
			dm.sourceToOutput[target] = srcout.Import(s)
		}
		for source, forms := range snap.Forms {
			for _, form := range forms {
				dm.formMap.Bind(source, form)
			}
		}
		return dm, true, nil
	case isNotExist(err):
		dm.dirty = dirtystate.New()
		return dm, false, nil
	default:
		return nil, false, wrapCorrupt("open", err)
	}
}

func (dm *DataManager) path() string {
	return filepath.Join(dm.root, "ibuild-state.zst")
}

// DirtyStore returns the Dirty-State Store.
func (dm *DataManager) DirtyStore() *dirtystate.Store { return dm.dirty }

// GetSourceToOutputMap returns (creating if absent) target's Source<->Output Map.
func (dm *DataManager) GetSourceToOutputMap(target model.TargetID) *srcout.Map {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	m := dm.sourceToOutput[target]
	if m == nil {
		m = srcout.New()
		dm.sourceToOutput[target] = m
	}
	return m
}

// GetSourceToFormMap returns the source-to-form OneToManyPathsMapping.
func (dm *DataManager) GetSourceToFormMap() *srcout.FormMap { return dm.formMap }

// GetOutputToSourceRegistry returns a Registry answering safe-to-delete
// queries across every target's Source<->Output Map, since a generated
// file may be claimed by a source belonging to a different target than
// the one currently being cleaned.
func (dm *DataManager) GetOutputToSourceRegistry() *Registry {
	dm.mu.Lock()
	maps := make([]*srcout.Map, 0, len(dm.sourceToOutput))
	for _, m := range dm.sourceToOutput {
		maps = append(maps, m)
	}
	dm.mu.Unlock()
	return &Registry{maps: maps}
}

// Flush persists all in-memory state. final controls nothing about the
// write itself (the write is always complete before Flush returns) but is
// threaded through so callers can log a distinct message for the last
// flush of an invocation vs. an interim one issued after a chunk (§4.5,
// §4.7).
func (dm *DataManager) Flush(final bool) error {
	dm.mu.Lock()
	srcOut := make(map[model.TargetID]srcout.Snapshot, len(dm.sourceToOutput))
	for target, m := range dm.sourceToOutput {
		srcOut[target] = m.Export()
	}
	forms := dm.formMap.Export()
	dirty := dm.dirty
	dm.mu.Unlock()

	snap := snapshot{
		Version: version,
		Dirty:   dirty.Export(),
		SrcOut:  srcOut,
		Forms:   forms,
	}
	if err := writeCompressed(dm.path(), snap); err != nil {
		return wrapCorrupt("flush", err)
	}
	_ = final
	return nil
}

// SaveVersion persists the store's version marker; a mismatch on the next
// Open would be a corruption signal, but this driver only ever writes one
// version, so SaveVersion is folded into Flush and kept only to satisfy
// the §6 DataManager contract for callers that call it explicitly.
func (dm *DataManager) SaveVersion() error {
	return dm.Flush(false)
}

// Clean wipes all in-memory and persisted state (§4.1 step 4: rebuild or
// forceCleanCaches wipes the timestamp and data stores).
func (dm *DataManager) Clean() error {
	dm.mu.Lock()
	dm.dirty = dirtystate.New()
	dm.sourceToOutput = map[model.TargetID]*srcout.Map{}
	dm.formMap = srcout.NewFormMap()
	dm.mu.Unlock()
	if err := removeIfExists(dm.path()); err != nil {
		return wrapCorrupt("clean", err)
	}
	return nil
}

// CloseSourceToOutputStorages is called after a chunk's finalize block
// (§4.5 step 3, §4.7): in this in-memory implementation there is no
// per-chunk file handle to release, so it's a no-op kept to satisfy the
// §6 contract and to give future on-disk-per-target backends a hook.
func (dm *DataManager) CloseSourceToOutputStorages(chunks []*model.TargetChunk) error {
	return nil
}

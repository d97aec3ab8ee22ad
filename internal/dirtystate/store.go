// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dirtystate implements the Dirty-State Store (§3, §4.6.2):
// per-target sources pending recompilation, sources deleted since the
// last build, and the round/chunk scratch areas the module-level
// builders pipeline clears at well-defined points.
package dirtystate

import (
	"sort"
	"sync"

	"github.com/jetcirc/ibuild/internal/model"
)

// fileSet is a root -> set of exec-root-relative file paths.
type fileSet map[string]map[string]bool

func (fs fileSet) add(root, file string) {
	m := fs[root]
	if m == nil {
		m = map[string]bool{}
		fs[root] = m
	}
	m[file] = true
}

func (fs fileSet) remove(root, file string) {
	m := fs[root]
	if m == nil {
		return
	}
	delete(m, file)
	if len(m) == 0 {
		delete(fs, root)
	}
}

func (fs fileSet) clone() fileSet {
	out := make(fileSet, len(fs))
	for root, files := range fs {
		m := make(map[string]bool, len(files))
		for f := range files {
			m[f] = true
		}
		out[root] = m
	}
	return out
}

// Store is the Dirty-State Store. The zero value is not usable; use New.
type Store struct {
	mu sync.Mutex

	// recompile holds, per target, the sources pending recompilation.
	recompile map[model.TargetID]fileSet
	// deleted holds, per target, sources deleted since the last build.
	deleted map[model.TargetID]map[string]bool
	// roundScratch accumulates files newly marked dirty during the
	// current pass of the module-level builders loop; reset at the start
	// of every pass (§4.6.1 step a) and merged/cleared at chunk
	// completion (§4.6 step 6).
	roundScratch map[model.TargetID]fileSet
	// chunkScratch accumulates files marked dirty for the lifetime of one
	// chunk build (e.g. by a CHUNK_REBUILD_REQUIRED reset); cleared only
	// when the chunk finishes (§4.6 step 6/7).
	chunkScratch map[model.TargetID]fileSet
	// known records every source path ever seen for a target, the seed
	// used to mark "every file in the chunk" dirty on a forced rebuild or
	// CHUNK_REBUILD_REQUIRED (§4.6.1 step c, CHUNK_REBUILD_REQUIRED case).
	known map[model.TargetID]fileSet
}

// New creates an empty Dirty-State Store.
func New() *Store {
	return &Store{
		recompile:    map[model.TargetID]fileSet{},
		deleted:      map[model.TargetID]map[string]bool{},
		roundScratch: map[model.TargetID]fileSet{},
		chunkScratch: map[model.TargetID]fileSet{},
		known:        map[model.TargetID]fileSet{},
	}
}

// Seed registers file as a known source of target under root, without
// marking it dirty. Used by the filesystem-reconciliation step that loads
// the persisted store and compares it against the current tree, and by
// tests that need deterministic "all sources" enumeration.
func (s *Store) Seed(target model.TargetID, root, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known[target] == nil {
		s.known[target] = fileSet{}
	}
	s.known[target].add(root, file)
}

// MarkDirty marks file under root dirty for target, recording it in the
// round scratch so the current pass can tell old dirty files from newly
// discovered ones.
func (s *Store) MarkDirty(target model.TargetID, root, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDirtyLocked(target, root, file)
}

func (s *Store) markDirtyLocked(target model.TargetID, root, file string) {
	if s.recompile[target] == nil {
		s.recompile[target] = fileSet{}
	}
	s.recompile[target].add(root, file)
	if s.roundScratch[target] == nil {
		s.roundScratch[target] = fileSet{}
	}
	s.roundScratch[target].add(root, file)
	if s.chunkScratch[target] == nil {
		s.chunkScratch[target] = fileSet{}
	}
	s.chunkScratch[target].add(root, file)
	if s.known[target] == nil {
		s.known[target] = fileSet{}
	}
	s.known[target].add(root, file)
}

// SourcesToRecompile returns a snapshot of target's dirty sources,
// root -> sorted file list (sorted for deterministic iteration; scheduling
// order beyond that is not guaranteed, per §9 open questions).
func (s *Store) SourcesToRecompile(target model.TargetID) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]string{}
	for root, files := range s.recompile[target] {
		list := make([]string, 0, len(files))
		for f := range files {
			list = append(list, f)
		}
		sort.Strings(list)
		out[root] = list
	}
	return out
}

// ClearRecompile drops file from target's dirty set, e.g. once a builder
// has produced its output.
func (s *Store) ClearRecompile(target model.TargetID, root, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recompile[target] != nil {
		s.recompile[target].remove(root, file)
	}
}

// ProcessFilesToRecompile iterates target's current dirty set, calling fn
// for each (root, file). If fn returns keep=false the file is dropped from
// the dirty set. Iteration order is sorted for determinism.
func (s *Store) ProcessFilesToRecompile(target model.TargetID, fn func(root, file string) (keep bool, err error)) error {
	recompile := s.SourcesToRecompile(target)
	roots := make([]string, 0, len(recompile))
	for root := range recompile {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	for _, root := range roots {
		for _, file := range recompile[root] {
			keep, err := fn(root, file)
			if err != nil {
				return err
			}
			if !keep {
				s.ClearRecompile(target, root, file)
			}
		}
	}
	return nil
}

// RegisterDeleted records file as deleted for target and drops it from the
// dirty set (a deleted source cannot also be pending recompilation).
func (s *Store) RegisterDeleted(target model.TargetID, file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted[target] == nil {
		s.deleted[target] = map[string]bool{}
	}
	s.deleted[target][file] = true
	for root := range s.recompile[target] {
		s.recompile[target].remove(root, file)
	}
	for root := range s.known[target] {
		s.known[target].remove(root, file)
	}
}

// GetAndClearDeletedPaths drains and clears target's deleted-paths list.
func (s *Store) GetAndClearDeletedPaths(target model.TargetID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.deleted[target]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	delete(s.deleted, target)
	return out
}

// RepublishDeleted re-adds paths to target's deleted-paths list. Used by
// the Chunk Runner's finally block (§4.6 step 7) to put back any deleted
// sources an interrupted pipeline drained but never finished processing.
func (s *Store) RepublishDeleted(target model.TargetID, paths []string) {
	if len(paths) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted[target] == nil {
		s.deleted[target] = map[string]bool{}
	}
	for _, p := range paths {
		s.deleted[target][p] = true
	}
}

// BeforeChunkBuildStart is the pre-round hook run once per chunk before
// the builders-for-chunk protocol starts (§4.6 step 4).
func (s *Store) BeforeChunkBuildStart(chunk *model.TargetChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range chunk.Targets {
		if s.chunkScratch[t.ID] == nil {
			s.chunkScratch[t.ID] = fileSet{}
		}
	}
}

// BeforeNextRoundStart resets the round scratch for every target in chunk,
// run at the start of every pass of the module-level builders loop
// (§4.6.1 step a).
func (s *Store) BeforeNextRoundStart(chunk *model.TargetChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range chunk.Targets {
		s.roundScratch[t.ID] = fileSet{}
	}
}

// ClearContextRoundData clears the round scratch for chunk, run at
// onChunkBuildComplete (§4.6 step 6).
func (s *Store) ClearContextRoundData(chunk *model.TargetChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range chunk.Targets {
		delete(s.roundScratch, t.ID)
	}
}

// ClearContextChunk clears the chunk scratch for chunk, run at
// onChunkBuildComplete (§4.6 step 6).
func (s *Store) ClearContextChunk(chunk *model.TargetChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range chunk.Targets {
		delete(s.chunkScratch, t.ID)
	}
}

// MarkChunkDirty marks every known source of every target in chunk dirty,
// used when a builder returns CHUNK_REBUILD_REQUIRED (§4.6.1) or when the
// scope forces a target's full recompilation.
func (s *Store) MarkChunkDirty(chunk *model.TargetChunk) {
	s.mu.Lock()
	known := make(map[model.TargetID]fileSet, len(chunk.Targets))
	for _, t := range chunk.Targets {
		known[t.ID] = s.known[t.ID].clone()
	}
	s.mu.Unlock()
	for id, fs := range known {
		for root, files := range fs {
			for file := range files {
				s.MarkDirty(id, root, file)
			}
		}
	}
}

// ClearAll wipes every target's dirty and deleted state; used on rebuild
// or forceCleanCaches (§4.1 step 4).
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recompile = map[model.TargetID]fileSet{}
	s.deleted = map[model.TargetID]map[string]bool{}
	s.roundScratch = map[model.TargetID]fileSet{}
	s.chunkScratch = map[model.TargetID]fileSet{}
	s.known = map[model.TargetID]fileSet{}
}

// HasDirty reports whether target has any pending recompile sources.
func (s *Store) HasDirty(target model.TargetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recompile[target]) > 0
}

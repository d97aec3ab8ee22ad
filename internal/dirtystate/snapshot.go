// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dirtystate

import "github.com/jetcirc/ibuild/internal/model"

// Snapshot is the on-disk representation of the store's durable state
// (recompile sets, deleted paths, known sources). Scratch areas are
// invocation-scoped and never persisted.
type Snapshot struct {
	Recompile map[model.TargetID]map[string][]string `json:"recompile"`
	Deleted   map[model.TargetID][]string             `json:"deleted"`
	Known     map[model.TargetID]map[string][]string  `json:"known"`
}

// Export produces a Snapshot for persistence.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Recompile: map[model.TargetID]map[string][]string{},
		Deleted:   map[model.TargetID][]string{},
		Known:     map[model.TargetID]map[string][]string{},
	}
	for target, fs := range s.recompile {
		snap.Recompile[target] = exportFileSet(fs)
	}
	for target, files := range s.deleted {
		list := make([]string, 0, len(files))
		for f := range files {
			list = append(list, f)
		}
		snap.Deleted[target] = list
	}
	for target, fs := range s.known {
		snap.Known[target] = exportFileSet(fs)
	}
	return snap
}

func exportFileSet(fs fileSet) map[string][]string {
	out := make(map[string][]string, len(fs))
	for root, files := range fs {
		list := make([]string, 0, len(files))
		for f := range files {
			list = append(list, f)
		}
		out[root] = list
	}
	return out
}

// Import restores a Store from a Snapshot, discarding any in-memory state.
func Import(snap Snapshot) *Store {
	s := New()
	for target, roots := range snap.Recompile {
		s.recompile[target] = importFileSet(roots)
	}
	for target, files := range snap.Deleted {
		m := make(map[string]bool, len(files))
		for _, f := range files {
			m[f] = true
		}
		s.deleted[target] = m
	}
	for target, roots := range snap.Known {
		s.known[target] = importFileSet(roots)
	}
	return s
}

func importFileSet(roots map[string][]string) fileSet {
	fs := fileSet{}
	for root, files := range roots {
		m := make(map[string]bool, len(files))
		for _, f := range files {
			m[f] = true
		}
		fs[root] = m
	}
	return fs
}

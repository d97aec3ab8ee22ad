// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package srcout implements the Source<->Output Map (§3): a persistent
// many-to-many association between source paths and produced output
// paths, plus an inverse index answering "is this output still claimed by
// some other live source" (the OutputToSourceRegistry / safe-to-delete
// query of §6).
package srcout

import "sync"

// Map is one target's source<->output association.
type Map struct {
	mu sync.Mutex
	// forward: source path -> set of output paths.
	forward map[string]map[string]bool
	// inverse: output path -> set of source paths that produce it.
	inverse map[string]map[string]bool
}

// New creates an empty Map.
func New() *Map {
	return &Map{
		forward: map[string]map[string]bool{},
		inverse: map[string]map[string]bool{},
	}
}

// Sources returns every source path tracked by the map.
func (m *Map) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.forward))
	for s := range m.forward {
		out = append(out, s)
	}
	return out
}

// Outputs returns the outputs registered for srcPath.
func (m *Map) Outputs(srcPath string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return setToSlice(m.forward[srcPath])
}

// SetOutputs replaces the outputs registered for srcPath, updating the
// inverse index accordingly.
func (m *Map) SetOutputs(srcPath string, outputs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSourceLocked(srcPath)
	if len(outputs) == 0 {
		return
	}
	set := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		set[out] = true
		if m.inverse[out] == nil {
			m.inverse[out] = map[string]bool{}
		}
		m.inverse[out][srcPath] = true
	}
	m.forward[srcPath] = set
}

// AddOutput records that srcPath produces output, in addition to any
// outputs already registered for it (unlike SetOutputs, it never drops
// prior outputs); used to persist a builder's OutputConsumer
// registrations into the target's map as they happen.
func (m *Map) AddOutput(srcPath, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forward[srcPath] == nil {
		m.forward[srcPath] = map[string]bool{}
	}
	m.forward[srcPath][output] = true
	if m.inverse[output] == nil {
		m.inverse[output] = map[string]bool{}
	}
	m.inverse[output][srcPath] = true
}

// Remove drops srcPath from the map entirely (e.g. once its deletion has
// been fully processed).
func (m *Map) Remove(srcPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSourceLocked(srcPath)
}

func (m *Map) removeSourceLocked(srcPath string) {
	for out := range m.forward[srcPath] {
		if m.inverse[out] != nil {
			delete(m.inverse[out], srcPath)
			if len(m.inverse[out]) == 0 {
				delete(m.inverse, out)
			}
		}
	}
	delete(m.forward, srcPath)
}

// SafeToDeleteOutputs filters outputs to those not also produced by a
// live source other than except (§4.6.2 step 5, §8 invariant 6).
func (m *Map) SafeToDeleteOutputs(outputs []string, except string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var safe []string
	for _, out := range outputs {
		producers := m.inverse[out]
		otherLive := false
		for src := range producers {
			if src != except {
				otherLive = true
				break
			}
		}
		if !otherLive {
			safe = append(safe, out)
		}
	}
	return safe
}

func setToSlice(s map[string]bool) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Snapshot is the on-disk representation of one target's Map.
type Snapshot struct {
	Forward map[string][]string `json:"forward"`
}

// Export produces a Snapshot for persistence.
func (m *Map) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.forward))
	for src, outs := range m.forward {
		out[src] = setToSlice(outs)
	}
	return Snapshot{Forward: out}
}

// Import restores a Map from a Snapshot.
func Import(snap Snapshot) *Map {
	m := New()
	for src, outs := range snap.Forward {
		m.SetOutputs(src, outs)
	}
	return m
}

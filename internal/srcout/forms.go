// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package srcout

import "sync"

// FormMap is a OneToManyPathsMapping (§6): source path -> set of bound
// form file paths (e.g. a UI form file bound to the class it generates).
// Consulted during deleted-path processing (§4.6.2 step 5) so a deleted
// source's bound forms are marked dirty instead of silently orphaned.
type FormMap struct {
	mu    sync.Mutex
	state map[string]map[string]bool
}

// NewFormMap creates an empty FormMap.
func NewFormMap() *FormMap {
	return &FormMap{state: map[string]map[string]bool{}}
}

// GetState returns the form paths bound to source.
func (f *FormMap) GetState(source string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return setToSlice(f.state[source])
}

// Bind associates form with source.
func (f *FormMap) Bind(source, form string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state[source] == nil {
		f.state[source] = map[string]bool{}
	}
	f.state[source][form] = true
}

// Remove drops the mapping for source.
func (f *FormMap) Remove(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, source)
}

// Export produces a snapshot of every source->forms binding for
// persistence.
func (f *FormMap) Export() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.state))
	for source, forms := range f.state {
		out[source] = setToSlice(forms)
	}
	return out
}

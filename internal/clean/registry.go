// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clean

import (
	"sync"

	"github.com/jetcirc/ibuild/internal/model"
)

// ClearedRegistry is the process-wide, per-invocation Cleared-Output
// Registry (§3): the set of targets whose outputs were cleared during
// this invocation, consulted so deleted-path processing can skip
// redundant deletion work (§4.6.2 step 3, §8 invariant 3).
type ClearedRegistry struct {
	mu  sync.Mutex
	set map[model.TargetID]bool
}

// NewClearedRegistry creates an empty registry.
func NewClearedRegistry() *ClearedRegistry {
	return &ClearedRegistry{set: map[model.TargetID]bool{}}
}

// Add records target as cleared.
func (r *ClearedRegistry) Add(target model.TargetID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[target] = true
}

// Contains reports whether target's outputs were cleared this invocation.
func (r *ClearedRegistry) Contains(target model.TargetID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set[target]
}

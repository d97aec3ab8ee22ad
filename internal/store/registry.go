// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package store

import "github.com/jetcirc/ibuild/internal/srcout"

// Registry is the OutputToSourceRegistry (§6): it answers whether an
// output is safe to delete given the source being removed, by consulting
// every target's Source<->Output Map.
type Registry struct {
	maps []*srcout.Map
}

// SafeToDeleteOutputs filters outputs to those not claimed by any live
// source other than except, across every target.
func (r *Registry) SafeToDeleteOutputs(outputs []string, except string) []string {
	safe := outputs
	for _, m := range r.maps {
		safe = m.SafeToDeleteOutputs(safe, except)
	}
	return safe
}

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package builder

import (
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/model"
)

// BuildTask is a before/after hook run once per invocation, outside any
// chunk (§4.1, §4.7).
type BuildTask func(ctx buildctx.Ctx) error

// Registry is the BuilderRegistry collaborator (§6): the fixed set of
// builders and invocation-level tasks a project wires up.
type Registry struct {
	targetBuilders []TargetBuilder
	moduleLevel    []ModuleLevelBuilder
	byCategory     map[model.Category][]ModuleLevelBuilder
	before         []BuildTask
	after          []BuildTask
}

// NewRegistry builds a Registry from target builders (run in the order
// given) and module-level builders (grouped by their declared category,
// in the fixed category order).
func NewRegistry(targetBuilders []TargetBuilder, moduleLevel []ModuleLevelBuilder, before, after []BuildTask) *Registry {
	r := &Registry{
		targetBuilders: targetBuilders,
		moduleLevel:    moduleLevel,
		byCategory:     map[model.Category][]ModuleLevelBuilder{},
		before:         before,
		after:          after,
	}
	for _, b := range moduleLevel {
		r.byCategory[b.Category()] = append(r.byCategory[b.Category()], b)
	}
	return r
}

// TargetBuilders returns the registered target builders, in order.
func (r *Registry) TargetBuilders() []TargetBuilder { return r.targetBuilders }

// ModuleLevelBuilders returns every registered module-level builder,
// across all categories.
func (r *Registry) ModuleLevelBuilders() []ModuleLevelBuilder { return r.moduleLevel }

// Builders returns the module-level builders registered under category,
// in registration order.
func (r *Registry) Builders(category model.Category) []ModuleLevelBuilder {
	return r.byCategory[category]
}

// BeforeTasks returns the invocation-level tasks run before any chunk.
func (r *Registry) BeforeTasks() []BuildTask { return r.before }

// AfterTasks returns the invocation-level tasks run after every chunk
// completes.
func (r *Registry) AfterTasks() []BuildTask { return r.after }

// ModuleLevelBuilderCount returns the total number of module-level
// builders, used to size the progress denominator (§4.6.1 step c).
func (r *Registry) ModuleLevelBuilderCount() int { return len(r.moduleLevel) }

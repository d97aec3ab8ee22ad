// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package graph builds the Chunk Graph (§4.4): a DAG of ChunkTasks derived
// from the target index's dependency edges, materialized as an arena of
// tasks addressed by integer index (§9 design notes: "Cyclic chunk
// tasks" — the task graph itself is acyclic since chunks are already
// SCC-contracted, so plain integer indices replace shared-ownership
// graphs).
package graph

import (
	"context"
	"fmt"

	"github.com/jetcirc/ibuild/internal/model"
)

// TargetIndex is the external collaborator (§6) the Chunk Graph consults.
type TargetIndex interface {
	// AllTargets returns every target known to the project.
	AllTargets() []*model.Target
	// SortedTargetChunks returns chunks in topological order,
	// predecessors first.
	SortedTargetChunks(ctx context.Context) ([]*model.TargetChunk, error)
	// Dependencies returns target's direct dependency targets.
	Dependencies(ctx context.Context, target *model.Target) []*model.Target
}

// Task is one chunk's node in the scheduling DAG.
type Task struct {
	Chunk *model.TargetChunk

	idx           int
	remainingDeps map[int]bool
	dependents    []int
}

// Ready reports whether every prerequisite of t has finished.
func (t *Task) Ready() bool {
	return len(t.remainingDeps) == 0
}

// Graph is the built chunk-task DAG.
type Graph struct {
	tasks []*Task
}

// Tasks returns every task in the graph, in the same order chunks were
// supplied (topological, predecessors first).
func (g *Graph) Tasks() []*Task { return g.tasks }

// Build constructs the Chunk Graph from chunks (already topologically
// sorted by the TargetIndex) and idx.Dependencies.
func Build(ctx context.Context, idx TargetIndex, chunks []*model.TargetChunk) (*Graph, error) {
	tasks := make([]*Task, len(chunks))
	chunkOf := map[model.TargetID]int{}
	for i, c := range chunks {
		tasks[i] = &Task{Chunk: c, idx: i, remainingDeps: map[int]bool{}}
		for _, t := range c.Targets {
			chunkOf[t.ID] = i
		}
	}
	for i, c := range chunks {
		for _, t := range c.Targets {
			for _, dep := range idx.Dependencies(ctx, t) {
				depChunk, ok := chunkOf[dep.ID]
				if !ok {
					return nil, fmt.Errorf("graph: dependency %s of %s not found in any chunk", dep, t)
				}
				if depChunk == i {
					// Self-edge (dependency lives in the same chunk): ignored.
					continue
				}
				if tasks[i].remainingDeps[depChunk] {
					continue
				}
				tasks[i].remainingDeps[depChunk] = true
				tasks[depChunk].dependents = append(tasks[depChunk].dependents, i)
			}
		}
	}
	return &Graph{tasks: tasks}, nil
}

// Ready returns the tasks with no remaining dependencies, in graph order.
func (g *Graph) Ready() []*Task {
	var out []*Task
	for _, t := range g.tasks {
		if t.Ready() {
			out = append(out, t)
		}
	}
	return out
}

// MarkFinished removes t from every dependent's remainingDeps and returns
// the dependents that became ready as a result. Panics if a dependent's
// bookkeeping doesn't record t as a dependency: that would indicate a
// scheduler invariant violation (§4.4: "Implementers must ensure the
// removal is asserted").
func (g *Graph) MarkFinished(t *Task) []*Task {
	var ready []*Task
	for _, depIdx := range t.dependents {
		dep := g.tasks[depIdx]
		if !dep.remainingDeps[t.idx] {
			panic(fmt.Sprintf("graph: task %s missing dependency edge from %s", dep.Chunk, t.Chunk))
		}
		delete(dep.remainingDeps, t.idx)
		if dep.Ready() {
			ready = append(ready, dep)
		}
	}
	return ready
}

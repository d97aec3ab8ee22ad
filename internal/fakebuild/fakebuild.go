// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fakebuild provides in-memory collaborator fakes for exercising
// the driver end-to-end without a real project: a TargetIndex over a
// fixed dependency graph, and simple target/module-level builders that
// "compile" by recording the sources they saw. Used by integration tests
// and by the CLI's sample project.
package fakebuild

import (
	"context"
	"fmt"
	"sort"

	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/graph"
	"github.com/jetcirc/ibuild/internal/model"
)

// Index is a fixed, in-memory TargetIndex.
type Index struct {
	targets []*model.Target
	deps    map[model.TargetID][]model.TargetID
}

// NewIndex builds an Index from targets and a dependency map (target ->
// its direct dependencies).
func NewIndex(targets []*model.Target, deps map[model.TargetID][]model.TargetID) *Index {
	return &Index{targets: targets, deps: deps}
}

func (idx *Index) AllTargets() []*model.Target { return idx.targets }

func (idx *Index) Dependencies(_ context.Context, target *model.Target) []*model.Target {
	var out []*model.Target
	for _, depID := range idx.deps[target.ID] {
		for _, t := range idx.targets {
			if t.ID == depID {
				out = append(out, t)
			}
		}
	}
	return out
}

// SortedTargetChunks computes strongly-connected components of the
// dependency graph via Tarjan's algorithm, returning chunks in
// topological order (predecessors first); module-based targets in the
// same SCC share a chunk, non-module targets always form singleton
// chunks even when cyclic (the Chunk Runner reports that as an error).
func (idx *Index) SortedTargetChunks(_ context.Context) ([]*model.TargetChunk, error) {
	byID := map[model.TargetID]*model.Target{}
	for _, t := range idx.targets {
		byID[t.ID] = t
	}

	var (
		index   = map[model.TargetID]int{}
		low     = map[model.TargetID]int{}
		onStack = map[model.TargetID]bool{}
		stack   []model.TargetID
		counter int
		sccs    [][]model.TargetID
	)

	var strongconnect func(v model.TargetID)
	strongconnect = func(v model.TargetID) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		deps := idx.deps[v]
		sortedDeps := append([]model.TargetID(nil), deps...)
		sort.Slice(sortedDeps, func(i, j int) bool { return sortedDeps[i] < sortedDeps[j] })
		for _, w := range sortedDeps {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var scc []model.TargetID
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	ids := make([]model.TargetID, 0, len(idx.targets))
	for _, t := range idx.targets {
		ids = append(ids, t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, seen := index[id]; !seen {
			strongconnect(id)
		}
	}

	// Tarjan completes a dependency's SCC before any SCC that depends on
	// it, so sccs is already predecessors first, the order the Chunk Graph
	// wants.
	chunks := make([]*model.TargetChunk, 0, len(sccs))
	for i := 0; i < len(sccs); i++ {
		scc := sccs[i]
		sort.Slice(scc, func(a, b int) bool { return scc[a] < scc[b] })
		targets := make([]*model.Target, 0, len(scc))
		names := make([]string, 0, len(scc))
		for _, id := range scc {
			targets = append(targets, byID[id])
			names = append(names, string(id))
		}
		chunks = append(chunks, &model.TargetChunk{ID: fmt.Sprintf("chunk(%v)", names), Targets: targets})
	}
	return chunks, nil
}

var _ graph.TargetIndex = (*Index)(nil)

// EchoTargetBuilder is a trivial target builder recording one build()
// call per target and always returning OK.
type EchoTargetBuilder struct {
	Calls []model.TargetID
}

func (b *EchoTargetBuilder) PresentableName() string { return "echo" }
func (b *EchoTargetBuilder) BuildStarted(buildctx.Ctx)  {}
func (b *EchoTargetBuilder) BuildFinished(buildctx.Ctx) {}
func (b *EchoTargetBuilder) ChunkBuildStarted(buildctx.Ctx, *model.TargetChunk)  {}
func (b *EchoTargetBuilder) ChunkBuildFinished(buildctx.Ctx, *model.TargetChunk) {}

func (b *EchoTargetBuilder) BuildTarget(ctx buildctx.Ctx, target *model.Target) (model.ExitCode, error) {
	b.Calls = append(b.Calls, target.ID)
	ctx.Progress(fmt.Sprintf("building %s", target.Name))
	return model.OK, nil
}

var _ builder.TargetBuilder = (*EchoTargetBuilder)(nil)

// EchoModuleBuilder is a trivial single-category module-level builder: it
// records each dirty source it's handed, registers a "<source>.out" output
// for it, and returns NOTHING_DONE once a chunk has no more dirty sources
// (so the module-level pipeline converges after one pass).
type EchoModuleBuilder struct {
	Cat   model.Category
	Calls []string
}

func (b *EchoModuleBuilder) PresentableName() string { return "echo-module-" + b.Cat.String() }
func (b *EchoModuleBuilder) BuildStarted(buildctx.Ctx)  {}
func (b *EchoModuleBuilder) BuildFinished(buildctx.Ctx) {}
func (b *EchoModuleBuilder) ChunkBuildStarted(buildctx.Ctx, *model.TargetChunk)  {}
func (b *EchoModuleBuilder) ChunkBuildFinished(buildctx.Ctx, *model.TargetChunk) {}
func (b *EchoModuleBuilder) Category() model.Category { return b.Cat }

func (b *EchoModuleBuilder) Build(ctx buildctx.Ctx, chunk *model.TargetChunk, dirty builder.DirtyFilesHolder, out builder.OutputConsumer) (model.ExitCode, error) {
	did := false
	for _, target := range chunk.Targets {
		target := target
		err := dirty.ProcessFilesToRecompile(target.ID, func(root, file string) (bool, error) {
			did = true
			b.Calls = append(b.Calls, file)
			out.RegisterOutput(target.ID, file, file+".out")
			ctx.Progress(fmt.Sprintf("%s: %s/%s", b.PresentableName(), root, file))
			return false, nil // processed, drop from the dirty set
		})
		if err != nil {
			return model.NothingDone, err
		}
	}
	if !did {
		return model.NothingDone, nil
	}
	return model.OK, nil
}

var _ builder.ModuleLevelBuilder = (*EchoModuleBuilder)(nil)

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runner implements the Chunk Runner (§4.6): the per-chunk
// pipeline that processes deleted sources, runs either the single-target
// or module-level builders protocol, and finalizes the chunk's
// dirty-state and source<->output bookkeeping.
package runner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/dirtystate"
	"github.com/jetcirc/ibuild/internal/errs"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/srcout"
)

// SafeToDelete answers whether a deleted source's outputs are still
// claimed by another live source; satisfied by *store.Registry.
type SafeToDelete interface {
	SafeToDeleteOutputs(outputs []string, except string) []string
}

// BuildRootIndex is the temp-source-root collaborator (§6): consulted
// only for its ClearTempRoots hook at chunk finalize (§4.6 step 7).
type BuildRootIndex interface {
	ClearTempRoots(ctx buildctx.Ctx) error
}

// Runner runs the Chunk Runner pipeline for one chunk at a time; it holds
// no per-chunk state itself, so one Runner is shared and called
// concurrently by the Parallel Scheduler's workers.
type Runner struct {
	Registry *builder.Registry
	Dirty    *dirtystate.Store
	Forms    *srcout.FormMap
	Safe     SafeToDelete
	FS       clean.FS
	Cleared  *clean.ClearedRegistry
	Roots    BuildRootIndex

	// SourceOutputFor resolves a target's Source<->Output Map.
	SourceOutputFor func(target model.TargetID) *srcout.Map

	// TestMode sorts deleted-path logs deterministically (§4.6.2 step 4).
	TestMode bool
}

// Run executes the full chunk pipeline (§4.6 steps 1-7).
func (r *Runner) Run(ctx buildctx.Ctx, chunk *model.TargetChunk) error {
	ctx.Bus().BuildingTarget(chunk.Targets, bus.Started)
	ctx.ClearErrorsDetected()

	var removedSources map[model.TargetID][]string
	defer func() {
		r.finalizeChunk(ctx, chunk, removedSources)
	}()

	if nonModule := chunk.NonModuleTargets(); len(chunk.Targets) > 1 && len(nonModule) > 0 {
		for _, t := range nonModule {
			ctx.Message(t.Name, model.Error, fmt.Sprintf("cannot build %s because it is included into a circular dependency", t.Name))
		}
		return nil
	}

	r.Dirty.BeforeChunkBuildStart(chunk)

	var err error
	removedSources, err = r.processDeletedPaths(ctx, chunk)
	if err != nil {
		return err
	}

	switch {
	case len(chunk.Targets) == 1 && !chunk.Targets[0].IsModuleBased():
		return r.runSingleTarget(ctx, chunk.Targets[0])
	case chunk.IsModuleChunk():
		return r.runModuleLevel(ctx, chunk)
	default:
		return nil
	}
}

func (r *Runner) finalizeChunk(ctx buildctx.Ctx, chunk *model.TargetChunk, removed map[model.TargetID][]string) {
	r.Dirty.ClearContextRoundData(chunk)
	r.Dirty.ClearContextChunk(chunk)
	if r.Roots != nil {
		if err := r.Roots.ClearTempRoots(ctx); err != nil {
			ctx.Message("runner", model.Warning, fmt.Sprintf("clearing temp source roots: %v", err))
		}
	}
	for target, paths := range removed {
		r.Dirty.RepublishDeleted(target, paths)
	}
	ctx.Bus().BuildingTarget(chunk.Targets, bus.Finished)
}

// runSingleTarget runs the single non-module-target path (§4.6 "Single
// non-module target path").
func (r *Runner) runSingleTarget(ctx buildctx.Ctx, target *model.Target) error {
	if !ctx.Scope().IsForced(target) {
		srcOut := r.SourceOutputFor(target.ID)
		if _, err := r.cleanOutputsForChangedFiles(ctx, target, srcOut); err != nil {
			return err
		}
	}

	builders := r.Registry.TargetBuilders()
	if len(builders) == 0 {
		return nil
	}
	for i, b := range builders {
		if err := ctx.CheckCanceled(); err != nil {
			return err
		}
		code, err := b.BuildTarget(ctx, target)
		if err != nil {
			return err
		}
		switch code {
		case model.Abort:
			return &errs.StopBuildError{Builder: b.PresentableName()}
		case model.OK:
			ctx.Bus().DoneSomething()
		}
		ctx.SetDone(float64(i+1) / float64(len(builders)))
	}
	return nil
}

// cleanOutputsForChangedFiles clears the recorded outputs of every source
// currently pending recompilation for target, returning the cleaned
// source paths so callers can drop the map entries (they will be
// re-emitted by the next builder pass). Shared by the single-target path
// and the module-level pipeline's per-pass step b.
func (r *Runner) cleanOutputsForChangedFiles(ctx buildctx.Ctx, target *model.Target, srcOut *srcout.Map) ([]string, error) {
	var cleaned []string
	recompile := r.Dirty.SourcesToRecompile(target.ID)
	roots := make([]string, 0, len(recompile))
	for root := range recompile {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	for _, root := range roots {
		for _, file := range recompile[root] {
			src := filepath.Join(root, file)
			outs := srcOut.Outputs(src)
			if len(outs) == 0 {
				continue
			}
			for _, out := range outs {
				if err := r.FS.RemoveAll(out); err != nil {
					ctx.Message(target.Name, model.Warning, fmt.Sprintf("cleaning stale output %s: %v", out, err))
				}
			}
			srcOut.Remove(src)
			cleaned = append(cleaned, src)
		}
	}
	return cleaned, nil
}

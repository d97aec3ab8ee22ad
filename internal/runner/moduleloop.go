// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package runner

import (
	"fmt"

	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/errs"
	"github.com/jetcirc/ibuild/internal/model"
)

// classpathIndexRoot picks the output root to write a chunk's
// classpath.index under: the first declared output root of the chunk's
// first target, or "" if none is declared (WriteClasspathIndex is a
// no-op without a concrete writer anyway).
func classpathIndexRoot(chunk *model.TargetChunk) string {
	for _, t := range chunk.Targets {
		if len(t.OutputRoots) > 0 {
			return t.OutputRoots[0]
		}
	}
	return ""
}

// runModuleLevel runs the module-level builders multi-pass loop (§4.6.1)
// for a chunk whose targets are all module-based.
func (r *Runner) runModuleLevel(ctx buildctx.Ctx, chunk *model.TargetChunk) error {
	out := builder.NewOutputConsumer()
	out.Persist = func(target model.TargetID, source, output string) {
		r.SourceOutputFor(target).AddOutput(source, output)
	}
	rebuildHonored := false

	for _, b := range r.Registry.ModuleLevelBuilders() {
		b.ChunkBuildStarted(ctx, chunk)
	}

	totalBuilderCount := 0
	for _, category := range model.Categories {
		totalBuilderCount += len(r.Registry.Builders(category))
	}
	progress := newModuleProgress(totalBuilderCount)
	modulesInChunk := len(chunk.Targets)

	for {
		r.Dirty.BeforeNextRoundStart(chunk)
		progress.startPass()

		forcedAll := r.chunkForcedRecompileAll(ctx, chunk)
		if !forcedAll {
			for _, target := range chunk.Targets {
				srcOut := r.SourceOutputFor(target.ID)
				if _, err := r.cleanOutputsForChangedFiles(ctx, target, srcOut); err != nil {
					return err
				}
			}
		}

		additionalPassRequired := false
		for _, category := range model.Categories {
			builders := r.Registry.Builders(category)
			if len(builders) == 0 {
				continue
			}
			if category == model.ClassPostProcessing {
				out.PersistInstrumentedClasses(ctx)
			}
			rebuild, err := r.runCategory(ctx, chunk, category, builders, out, &additionalPassRequired, rebuildHonored, progress, modulesInChunk, totalBuilderCount)
			if err != nil {
				return err
			}
			if rebuild {
				rebuildHonored = true
				out.Clear()
				additionalPassRequired = true
				break // re-enter the outer loop (§4.6.1 step c, CHUNK_REBUILD_REQUIRED)
			}
		}

		if !additionalPassRequired {
			break
		}
	}

	out.PersistInstrumentedClasses(ctx)
	out.FireFileGeneratedEvents(ctx)
	if ctx.Config()["generate.classpath.index"] == "true" {
		if err := out.WriteClasspathIndex(classpathIndexRoot(chunk)); err != nil {
			ctx.Message("runner", model.Warning, fmt.Sprintf("writing classpath index: %v", err))
		}
	}
	out.Clear()

	for _, b := range r.Registry.ModuleLevelBuilders() {
		b.ChunkBuildFinished(ctx, chunk)
	}
	return nil
}

// moduleProgress tracks the §4.6.1/§8 progress counters for one chunk's
// module-level pipeline: a processed count against a denominator that can
// be enlarged mid-pass (ADDITIONAL_PASS_REQUIRED) or reset to the chunk's
// starting point (a honored CHUNK_REBUILD_REQUIRED), while always reporting
// a monotonically non-decreasing fraction through ctx.SetDone.
type moduleProgress struct {
	processed float64
	denom     float64
	enlarged  bool
}

func newModuleProgress(totalBuilderCount int) *moduleProgress {
	denom := float64(totalBuilderCount)
	if denom <= 0 {
		denom = 1
	}
	return &moduleProgress{denom: denom}
}

// startPass clears the per-pass "already enlarged" guard; called once at
// the top of every outer-loop iteration so a fresh pass may enlarge the
// denominator again on its own first ADDITIONAL_PASS_REQUIRED.
func (p *moduleProgress) startPass() {
	p.enlarged = false
}

// enlarge grows the denominator by totalBuilderCount on the first
// ADDITIONAL_PASS_REQUIRED of a pass, re-anchoring processed so the
// reported fraction does not move backwards.
func (p *moduleProgress) enlarge(totalBuilderCount int) {
	if p.enlarged || totalBuilderCount <= 0 {
		return
	}
	p.enlarged = true
	newDenom := p.denom + float64(totalBuilderCount)
	p.processed = p.processed / p.denom * newDenom
	p.denom = newDenom
}

// resetToChunkStart restores the counters to where they stood when the
// chunk's pipeline began, for an honored CHUNK_REBUILD_REQUIRED.
func (p *moduleProgress) resetToChunkStart(totalBuilderCount int) {
	p.processed = 0
	p.denom = float64(totalBuilderCount)
	if p.denom <= 0 {
		p.denom = 1
	}
	p.enlarged = false
}

func (p *moduleProgress) advance(ctx buildctx.Ctx, modulesInChunk int) {
	p.processed += float64(modulesInChunk)
	ctx.SetDone(p.processed / p.denom)
}

// runCategory runs every builder in one category for one pass, returning
// true if a CHUNK_REBUILD_REQUIRED was honored (the caller must break out
// of the category loop and restart the outer pass loop).
func (r *Runner) runCategory(ctx buildctx.Ctx, chunk *model.TargetChunk, category model.Category, builders []builder.ModuleLevelBuilder, out builder.OutputConsumer, additionalPassRequired *bool, rebuildAlreadyHonored bool, progress *moduleProgress, modulesInChunk, totalBuilderCount int) (bool, error) {
	for _, b := range builders {
		if _, err := r.processDeletedPaths(ctx, chunk); err != nil {
			return false, err
		}

		dirty := r.Dirty
		code, err := b.Build(ctx, chunk, dirty, out)
		if err != nil {
			return false, err
		}

		switch code {
		case model.NothingDone:
			// no effect.
		case model.OK:
			ctx.Bus().DoneSomething()
		case model.Abort:
			return false, &errs.StopBuildError{Builder: b.PresentableName()}
		case model.AdditionalPassRequired:
			*additionalPassRequired = true
			progress.enlarge(totalBuilderCount)
		case model.ChunkRebuildRequired:
			if rebuildAlreadyHonored {
				// Already honored once this invocation: treat as a
				// no-op, matching §8 invariant 5.
				break
			}
			r.Dirty.ClearContextRoundData(chunk)
			r.Dirty.MarkChunkDirty(chunk)
			progress.resetToChunkStart(totalBuilderCount)
			return true, nil
		}

		if err := ctx.CheckCanceled(); err != nil {
			return false, err
		}
		progress.advance(ctx, modulesInChunk)
	}
	return false, nil
}

// chunkForcedRecompileAll reports whether every target in chunk is forced
// (scope.IsForced), in which case the per-pass output-cleaning step is
// skipped since everything will be recompiled regardless.
func (r *Runner) chunkForcedRecompileAll(ctx buildctx.Ctx, chunk *model.TargetChunk) bool {
	for _, t := range chunk.Targets {
		if !ctx.Scope().IsForced(t) {
			return false
		}
	}
	return true
}

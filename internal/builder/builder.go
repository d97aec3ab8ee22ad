// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package builder defines the Builder collaborator contracts (§6) and the
// registry that orders them into categories: target builders (single
// target, single pass) and module-level builders (run per chunk, may
// request additional passes or a full chunk rebuild).
package builder

import (
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/model"
)

// Builder is the behavior common to both builder varieties.
type Builder interface {
	// PresentableName names the builder for logs and error messages.
	PresentableName() string
	// BuildStarted/BuildFinished bracket the whole invocation.
	BuildStarted(ctx buildctx.Ctx)
	BuildFinished(ctx buildctx.Ctx)
	// ChunkBuildStarted/ChunkBuildFinished bracket one chunk's pipeline.
	ChunkBuildStarted(ctx buildctx.Ctx, chunk *model.TargetChunk)
	ChunkBuildFinished(ctx buildctx.Ctx, chunk *model.TargetChunk)
}

// TargetBuilder runs once per non-module target, single pass.
type TargetBuilder interface {
	Builder
	// BuildTarget runs the builder against target, returning an exit code
	// restricted to {OK, NOTHING_DONE, ABORT} — target builders never
	// request an additional pass or chunk rebuild (§4.6: single-target,
	// single-pass path).
	BuildTarget(ctx buildctx.Ctx, target *model.Target) (model.ExitCode, error)
}

// ModuleLevelBuilder runs per multi-target module chunk and may request
// another pass or a full chunk rebuild.
type ModuleLevelBuilder interface {
	Builder
	// Category reports the builder's fixed run-order category.
	Category() model.Category
	// Build runs one pass of the builder against chunk.
	Build(ctx buildctx.Ctx, chunk *model.TargetChunk, dirty DirtyFilesHolder, out OutputConsumer) (model.ExitCode, error)
}

// DirtyFilesHolder is the narrow dirty-state view module-level builders
// consult; it is satisfied by *dirtystate.Store.
type DirtyFilesHolder interface {
	SourcesToRecompile(target model.TargetID) map[string][]string
	ProcessFilesToRecompile(target model.TargetID, fn func(root, file string) (bool, error)) error
}

// OutputConsumer buffers outputs a module-level builder produces during a
// pass; the Chunk Runner persists instrumented classes and fires pending
// file-generated events at the category and pass boundaries named in
// §4.6.1.
type OutputConsumer interface {
	// RegisterOutput records that target's source produced output.
	RegisterOutput(target model.TargetID, source, output string)
	// PersistInstrumentedClasses flushes any classes the consumer is
	// holding back for CLASS_POST_PROCESSING builders to see.
	PersistInstrumentedClasses(ctx buildctx.Ctx)
	// FireFileGeneratedEvents emits accumulated output registrations as
	// bus events.
	FireFileGeneratedEvents(ctx buildctx.Ctx)
	// Clear drops all buffered state, e.g. after a chunk rebuild.
	Clear()
	// WriteClasspathIndex persists a classpath.index file under root when
	// classpath-index generation is enabled (supplemented feature recovered
	// from JPS); a no-op implementation is valid when the feature is
	// disabled or the project has no concrete root to write under.
	WriteClasspathIndex(root string) error
}

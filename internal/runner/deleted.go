// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package runner

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/model"
)

// removedSourcesKey accumulates, across every chunk of one invocation,
// the union of sources whose deletion has been processed (§4.6.2 step 6).
var removedSourcesKey = buildctx.GlobalKey("removed-sources")

// processDeletedPaths runs §4.6.2 for every target in chunk. On success
// it returns nil; on an I/O failure it returns the per-target deleted
// paths that were drained but not fully processed, so the caller can
// republish them back into the Dirty-State Store rather than lose them.
func (r *Runner) processDeletedPaths(ctx buildctx.Ctx, chunk *model.TargetChunk) (map[model.TargetID][]string, error) {
	perChunk := map[model.TargetID][]string{}
	var emptyDirs map[string]bool

	for _, target := range chunk.Targets {
		deletedPaths := r.Dirty.GetAndClearDeletedPaths(target.ID)
		if len(deletedPaths) == 0 {
			continue
		}
		perChunk[target.ID] = deletedPaths

		if r.Cleared.Contains(target.ID) {
			// This target's outputs were already cleared wholesale this
			// invocation: skip physical deletion.
			continue
		}
		if r.TestMode {
			sort.Strings(deletedPaths)
		}

		srcOut := r.SourceOutputFor(target.ID)
		if target.IsModuleBased() && emptyDirs == nil {
			emptyDirs = map[string]bool{}
		}
		for _, src := range deletedPaths {
			if err := ctx.CheckCanceled(); err != nil {
				return perChunk, err
			}
			outs := srcOut.Outputs(src)
			safe := r.Safe.SafeToDeleteOutputs(outs, src)
			var deleted []string
			for _, out := range safe {
				if err := r.FS.RemoveAll(out); err != nil {
					return perChunk, fmt.Errorf("deleting output %s for removed source %s: %w", out, src, err)
				}
				deleted = append(deleted, out)
				if emptyDirs != nil {
					emptyDirs[filepath.Dir(out)] = true
				}
			}
			ctx.Bus().FilesDeleted(deleted)
			srcOut.Remove(src)

			if target.IsModuleBased() {
				for _, form := range r.Forms.GetState(src) {
					if r.FS != nil {
						if exists, err := r.FS.Exists(form); err == nil && exists {
							r.Dirty.MarkDirty(target.ID, filepath.Dir(form), filepath.Base(form))
						}
					}
				}
				r.Forms.Remove(src)
			}
		}
	}

	r.mergeRemovedSources(ctx, perChunk)
	r.pruneEmptyDirs(emptyDirs)
	return nil, nil
}

func (r *Runner) mergeRemovedSources(ctx buildctx.Ctx, perChunk map[model.TargetID][]string) {
	if len(perChunk) == 0 {
		return
	}
	existing, _ := ctx.Get(removedSourcesKey).(map[model.TargetID][]string)
	merged := map[model.TargetID][]string{}
	for target, paths := range existing {
		merged[target] = append(merged[target], paths...)
	}
	for target, paths := range perChunk {
		merged[target] = append(merged[target], paths...)
	}
	ctx.Put(removedSourcesKey, merged)
}

func (r *Runner) pruneEmptyDirs(dirs map[string]bool) {
	if len(dirs) == 0 {
		return
	}
	list := make([]string, 0, len(dirs))
	for d := range dirs {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	for _, d := range list {
		empty, err := r.FS.IsEmptyDir(d)
		if err != nil || !empty {
			continue
		}
		_ = r.FS.RemoveAll(d)
	}
}

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clean

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jetcirc/ibuild/internal/asynctask"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/clog"
	"github.com/jetcirc/ibuild/internal/model"
)

// ExcludeIndex is the ModuleExcludeIndex collaborator (§6).
type ExcludeIndex interface {
	IsInContent(path string) bool
	IsExcluded(path string) bool
}

// SourceOutputMap is the subset of srcout.Map the cleaner needs.
type SourceOutputMap interface {
	Sources() []string
	Outputs(src string) []string
	Remove(src string)
}

// Cleaner is the Output Cleaner (§4.3).
type Cleaner struct {
	FS       FS
	Exclude  ExcludeIndex
	Registry *ClearedRegistry
	Tasks    *asynctask.Tracker
}

// New creates a Cleaner. exclude may be nil (no exclusions configured).
func New(fs FS, exclude ExcludeIndex, registry *ClearedRegistry, tasks *asynctask.Tracker) *Cleaner {
	return &Cleaner{FS: fs, Exclude: exclude, Registry: registry, Tasks: tasks}
}

// SourceOutputFor resolves the SourceOutputMap for a target, for the
// fallback-to-selective path of WholeProjectClean.
type SourceOutputFor func(target *model.Target) SourceOutputMap

// WholeProjectClean performs the whole-project clean (§4.3, rebuild with
// "clear output dir" enabled).
func (c *Cleaner) WholeProjectClean(ctx buildctx.Ctx, targets []*model.Target, srcOutFor SourceOutputFor) error {
	outputRootTargets := map[string][]*model.Target{}
	for _, t := range targets {
		for _, root := range t.OutputRoots {
			outputRootTargets[root] = append(outputRootTargets[root], t)
		}
	}

	var sourceRoots []string
	for _, t := range targets {
		for _, sr := range t.SourceRoots {
			if sr.Generated || sr.Excluded {
				continue
			}
			if c.Exclude != nil && (!c.Exclude.IsInContent(sr.Path) || c.Exclude.IsExcluded(sr.Path)) {
				continue
			}
			sourceRoots = append(sourceRoots, sr.Path)
		}
	}

	roots := make([]string, 0, len(outputRootTargets))
	for root := range outputRootTargets {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	for _, root := range roots {
		owners := outputRootTargets[root]
		if c.okToDelete(root, sourceRoots) {
			c.cleanRootChildren(ctx, root, owners)
			continue
		}
		ctx.Message("clean", model.Warning, fmt.Sprintf("output root %q overlaps a source root; falling back to selective clean", root))
		for _, t := range owners {
			if err := c.SelectiveClean(ctx, t, srcOutFor(t)); err != nil {
				ctx.Message("clean", model.Warning, fmt.Sprintf("selective clean of %s failed: %v", t, err))
			}
		}
	}
	ctx.Progress("Cleaning output directories…")
	return nil
}

func (c *Cleaner) okToDelete(root string, sourceRoots []string) bool {
	if c.Exclude != nil && c.Exclude.IsExcluded(root) {
		return true
	}
	for _, sr := range sourceRoots {
		if overlaps(root, sr) {
			return false
		}
	}
	return true
}

// overlaps reports whether a and b are the same directory or one is an
// ancestor of the other.
func overlaps(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	return strings.HasPrefix(a+string(filepath.Separator), b+string(filepath.Separator)) ||
		strings.HasPrefix(b+string(filepath.Separator), a+string(filepath.Separator))
}

func (c *Cleaner) cleanRootChildren(ctx buildctx.Ctx, root string, owners []*model.Target) {
	children, err := c.FS.ReadDir(root)
	if err != nil {
		// Missing output root is not an error: nothing to clean.
		return
	}
	var failed []string
	for _, child := range children {
		p := filepath.Join(root, child)
		if err := c.FS.RemoveAll(p); err != nil {
			failed = append(failed, p)
		}
	}
	for _, t := range owners {
		c.Registry.Add(t.ID)
	}
	if len(failed) > 0 && c.Tasks != nil {
		fs := c.FS
		c.Tasks.Go(ctx.Std(), "clean-leftovers", func(_ context.Context) error {
			var lastErr error
			for _, p := range failed {
				if err := fs.RemoveAll(p); err != nil {
					lastErr = err
				}
			}
			return lastErr
		})
	}
}

// SelectiveClean performs the per-target selective clean (§4.3).
func (c *Cleaner) SelectiveClean(ctx buildctx.Ctx, target *model.Target, srcOut SourceOutputMap) error {
	var parentDirs map[string]bool
	if target.IsModuleBased() {
		parentDirs = map[string]bool{}
	}
	for _, src := range srcOut.Sources() {
		outs := srcOut.Outputs(src)
		var deleted []string
		for _, out := range outs {
			if err := c.FS.RemoveAll(out); err != nil {
				clog.Warnf(ctx.Std(), "selective clean: failed to remove %s: %v", out, err)
				continue
			}
			deleted = append(deleted, out)
			if parentDirs != nil {
				parentDirs[filepath.Dir(out)] = true
			}
		}
		ctx.Bus().FilesDeleted(deleted)
		srcOut.Remove(src)
	}
	c.Registry.Add(target.ID)
	c.pruneEmptyDirs(parentDirs)
	return nil
}

func (c *Cleaner) pruneEmptyDirs(dirs map[string]bool) {
	list := make([]string, 0, len(dirs))
	for d := range dirs {
		list = append(list, d)
	}
	// Deepest first so a child directory emptying out can make its
	// parent eligible for pruning too.
	sort.Slice(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	for _, d := range list {
		empty, err := c.FS.IsEmptyDir(d)
		if err != nil || !empty {
			continue
		}
		_ = c.FS.RemoveAll(d)
	}
}

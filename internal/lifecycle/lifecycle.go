// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package lifecycle implements the Lifecycle Coordinator (§4.1): the
// top-level build() entry that wires the Chunk Graph, Parallel Scheduler,
// Chunk Runner, Output Cleaner, and persistent stores into one invocation,
// and classifies failures per §7.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jetcirc/ibuild/internal/asynctask"
	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/clog"
	"github.com/jetcirc/ibuild/internal/config"
	"github.com/jetcirc/ibuild/internal/errs"
	"github.com/jetcirc/ibuild/internal/graph"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/runner"
	"github.com/jetcirc/ibuild/internal/scheduler"
	"github.com/jetcirc/ibuild/internal/store"
	"github.com/jetcirc/ibuild/internal/timing"
)

// timingWarnThreshold flags a stage in the build summary log when it
// alone accounts for this much wall time, a cheap signal that something
// is unexpectedly slow (supplemented feature recovered from JPS's
// TimingLog).
const timingWarnThreshold = 30 * time.Second

// lowMemoryPollInterval is how often the low-memory hook samples heap
// usage, grounded on the teacher's trace-events sampler
// (build/trace.go's runtime.ReadMemStats poller).
const lowMemoryPollInterval = 2 * time.Second

// lowMemoryThresholdBytes triggers a precautionary flush once the Go
// heap exceeds this size (§4.1 step 1).
const lowMemoryThresholdBytes = 2 << 30 // 2 GiB

// Coordinator is the Lifecycle Coordinator.
type Coordinator struct {
	Index      graph.TargetIndex
	Registry   *builder.Registry
	DataMgr    *store.DataManager
	Timestamps *store.TimestampStorage
	Cleaner    *clean.Cleaner
	ClearedReg *clean.ClearedRegistry
	Bus        *bus.Bus
	Project    any

	newRunner func() *runner.Runner
}

// New creates a Coordinator. newRunner constructs a fresh Runner sharing
// the Coordinator's stores; it's a factory rather than a single shared
// Runner so tests can swap in fakes per invocation.
func New(index graph.TargetIndex, registry *builder.Registry, dataMgr *store.DataManager, timestamps *store.TimestampStorage, cleaner *clean.Cleaner, clearedReg *clean.ClearedRegistry, b *bus.Bus, project any, newRunner func() *runner.Runner) *Coordinator {
	return &Coordinator{
		Index:      index,
		Registry:   registry,
		DataMgr:    dataMgr,
		Timestamps: timestamps,
		Cleaner:    cleaner,
		ClearedReg: clearedReg,
		Bus:        b,
		Project:    project,
		newRunner:  newRunner,
	}
}

// Build runs one full invocation (§4.1).
func (c *Coordinator) Build(std context.Context, scope model.Scope, forceCleanCaches bool) error {
	tasks := asynctask.New()

	lowMemCtx, stopLowMem := context.WithCancel(std)
	go c.runLowMemoryHook(lowMemCtx)
	defer stopLowMem()

	tasks.Go(std, "temp-dir-cleanup", c.cleanTempDir)

	buildConfig := map[string]string{}
	if config.GenerateClasspathIndex() {
		buildConfig["generate.classpath.index"] = "true"
	}
	invocationID := uuid.NewString()
	std = clog.With(std, "invocation", invocationID)
	ctx := buildctx.NewWithID(std, invocationID, scope, c.Bus, buildConfig, map[string]string{}, c.Project)
	sw := timing.New()

	for _, b := range c.Registry.TargetBuilders() {
		b.BuildStarted(ctx)
	}
	for _, b := range c.Registry.ModuleLevelBuilders() {
		b.BuildStarted(ctx)
	}

	var buildErr error
	defer func() {
		c.finalize(ctx, tasks, buildErr, sw)
	}()

	if scope.IsRebuild() || forceCleanCaches {
		stop := sw.Start("clean-for-rebuild")
		err := c.cleanForRebuild(ctx)
		stop()
		if err != nil {
			buildErr = err
			return buildErr
		}
	}

	stopBefore := sw.Start("before-tasks")
	for _, task := range c.Registry.BeforeTasks() {
		if err := task(ctx); err != nil {
			stopBefore()
			buildErr = c.classify(err)
			return buildErr
		}
	}
	stopBefore()

	stopChunks := sw.Start("build-chunks")
	err := c.buildChunks(ctx)
	stopChunks()
	if err != nil {
		buildErr = c.classify(err)
		return buildErr
	}

	stopAfter := sw.Start("after-tasks")
	for _, task := range c.Registry.AfterTasks() {
		if err := task(ctx); err != nil {
			stopAfter()
			buildErr = c.classify(err)
			return buildErr
		}
	}
	stopAfter()
	return nil
}

func (c *Coordinator) cleanForRebuild(ctx buildctx.Ctx) error {
	targets := c.Index.AllTargets()
	if err := c.Cleaner.WholeProjectClean(ctx, targets, func(t *model.Target) clean.SourceOutputMap {
		return c.DataMgr.GetSourceToOutputMap(t.ID)
	}); err != nil {
		return err
	}
	if err := c.Timestamps.Clean(); err != nil {
		return err
	}
	return c.DataMgr.Clean()
}

// buildChunks is the §4.7 entry: selects parallel vs sequential execution
// and runs the Chunk Graph to completion.
func (c *Coordinator) buildChunks(ctx buildctx.Ctx) error {
	chunks, err := c.Index.SortedTargetChunks(ctx.Std())
	if err != nil {
		return err
	}
	g, err := graph.Build(ctx.Std(), c.Index, chunks)
	if err != nil {
		return err
	}

	limits := config.DefaultLimits(ctx.Std())
	workers := limits.MaxBuilderThreads
	if !config.ParallelBuildEnabled() {
		workers = 1
	}

	run := func(wctx buildctx.Ctx, task *graph.Task) error {
		return c.newRunner().Run(wctx, task.Chunk)
	}
	finalize := func(wctx buildctx.Ctx, task *graph.Task) {
		c.Timestamps.Update(time.Now())
		if err := c.DataMgr.CloseSourceToOutputStorages([]*model.TargetChunk{task.Chunk}); err != nil {
			clog.Warnf(wctx.Std(), "closing source-to-output storages: %v", err)
		}
		if err := c.DataMgr.Flush(false); err != nil {
			clog.Warnf(wctx.Std(), "flushing data manager: %v", err)
		}
	}
	newWrapped := func(parent buildctx.Ctx) buildctx.Ctx {
		return buildctx.Wrap(parent)
	}

	sched := scheduler.New(workers, run, finalize, newWrapped)
	return sched.Run(ctx, g)
}

func (c *Coordinator) runLowMemoryHook(ctx context.Context) {
	ticker := time.NewTicker(lowMemoryPollInterval)
	defer ticker.Stop()
	var mem runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runtime.ReadMemStats(&mem)
			if mem.HeapAlloc < lowMemoryThresholdBytes {
				continue
			}
			if err := c.DataMgr.Flush(false); err != nil {
				clog.Warnf(ctx, "low-memory flush of data manager failed: %v", err)
			}
			if err := c.Timestamps.Force(); err != nil {
				clog.Warnf(ctx, "low-memory flush of timestamp store failed: %v", err)
			}
		}
	}
}

func (c *Coordinator) cleanTempDir(ctx context.Context) error {
	// The project's system root for temp build artifacts is a
	// project-descriptor concern this driver doesn't define (§1
	// Non-goals: builder transformation logic); real deployments wire
	// Project to a descriptor exposing it. Nothing to do without one.
	return nil
}

func (c *Coordinator) finalize(ctx buildctx.Ctx, tasks *asynctask.Tracker, buildErr error, sw *timing.Stopwatch) {
	for _, b := range c.Registry.TargetBuilders() {
		b.BuildFinished(ctx)
	}
	for _, b := range c.Registry.ModuleLevelBuilders() {
		b.BuildFinished(ctx)
	}
	if err := c.Timestamps.Force(); err != nil {
		clog.Warnf(ctx.Std(), "final timestamp flush failed: %v", err)
	}
	if err := c.DataMgr.Flush(true); err != nil {
		clog.Warnf(ctx.Std(), "final data manager flush failed: %v", err)
	}
	tasks.Wait(ctx.Std())

	if buildErr == nil {
		if summary := sw.Summary(); len(summary) > 0 {
			clog.Infof(ctx.Std(), "build timing: %s", strings.Join(summary, ", "))
		}
	}
	for _, stage := range []string{"clean-for-rebuild", "before-tasks", "build-chunks", "after-tasks"} {
		if d := sw.Total(stage); d > timingWarnThreshold {
			clog.Warnf(ctx.Std(), "stage %q took %s, exceeding the %s reporting threshold", stage, timing.FormatDuration(d), timing.FormatDuration(timingWarnThreshold))
		}
	}
}

// classify implements the §4.1/§7 failure-classification policy.
func (c *Coordinator) classify(err error) error {
	if err == nil {
		return nil
	}
	var stop *errs.StopBuildError
	if errors.As(err, &stop) {
		c.Bus.Progress(stop.Error())
		return nil
	}
	if errs.IsCorruption(err) {
		c.Bus.Message("lifecycle", model.Info, fmt.Sprintf("storage corruption detected, requesting rebuild: %v", err))
		return &errs.RebuildRequestedError{Cause: err}
	}
	c.Bus.Message("lifecycle", model.Error, err.Error())
	return err
}

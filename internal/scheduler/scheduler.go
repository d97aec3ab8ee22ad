// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scheduler implements the Parallel Scheduler (§4.5): a bounded
// worker pool that runs the Chunk Graph to completion, falling back to
// sequential execution when parallelism is disabled or the pool would
// only have one worker. Grounded on the teacher's build/plan.go scheduler
// (worker goroutines draining a ready queue under a countdown) and
// build/limits.go for pool sizing.
package scheduler

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/clog"
	"github.com/jetcirc/ibuild/internal/concurrency"
	"github.com/jetcirc/ibuild/internal/graph"
)

// ChunkRunner runs one chunk's full pipeline under a wrapped context,
// returning the first error encountered (nil on success).
type ChunkRunner func(ctx buildctx.Ctx, task *graph.Task) error

// Finalizer runs once per chunk regardless of success or failure:
// updating the compilation start stamp, closing per-chunk storages, and
// flushing the data manager non-final (§4.5 step 3 "finally", §4.7).
type Finalizer func(ctx buildctx.Ctx, task *graph.Task)

// Scheduler runs a Graph's tasks to completion.
type Scheduler struct {
	workers    int
	run        ChunkRunner
	finalize   Finalizer
	newWrapped func(parent buildctx.Ctx) buildctx.Ctx
}

// New creates a Scheduler with the given worker count (use 1 to force
// sequential execution). newWrapped must produce a fresh WrappedContext
// per chunk, isolating the chunk's local user-data from its siblings.
func New(workers int, run ChunkRunner, finalize Finalizer, newWrapped func(parent buildctx.Ctx) buildctx.Ctx) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{workers: workers, run: run, finalize: finalize, newWrapped: newWrapped}
}

// Run executes g to completion under parent, returning the first error
// any chunk produced (other chunks still run to their finalize step).
func (s *Scheduler) Run(parent buildctx.Ctx, g *graph.Graph) error {
	if s.workers <= 1 {
		return s.runSequential(parent, g)
	}
	return s.runParallel(parent, g)
}

func (s *Scheduler) runSequential(parent buildctx.Ctx, g *graph.Graph) error {
	var firstErr error
	queue := append([]*graph.Task(nil), g.Ready()...)
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]

		wctx := s.newWrapped(parent)
		if firstErr == nil {
			if err := parent.CheckCanceled(); err != nil {
				firstErr = err
			} else if err := s.run(wctx, task); err != nil {
				firstErr = err
			}
		}
		s.finalize(wctx, task)
		queue = append(queue, g.MarkFinished(task)...)
	}
	return firstErr
}

// firstException is the CAS-style first-error slot shared across workers
// (§5: "firstException uses compare-and-set — first writer wins").
type firstException struct {
	mu  sync.Mutex
	err error
}

func (f *firstException) trySet(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *firstException) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// runParallel dispatches ready tasks onto an errgroup.Group, each
// goroutine gated by a shared semaphore sized to s.workers (§4.5's bounded
// worker pool). A single goroutine (this one) owns the graph's mutable
// scheduling state — the ready queue and the countdown — so MarkFinished
// and queue pushes never need their own lock; errgroup goroutines only run
// one chunk each and report completion.
func (s *Scheduler) runParallel(parent buildctx.Ctx, g *graph.Graph) error {
	type result struct {
		task *graph.Task
	}

	resultCh := make(chan result)
	sem := concurrency.New("chunk-builders", s.workers)
	eg, egCtx := errgroup.WithContext(parent.Std())
	fx := &firstException{}

	// dispatch registers one errgroup goroutine per task; it always
	// returns nil to errgroup (firstException, not egCtx cancellation, is
	// this scheduler's error-propagation channel) so one chunk's failure
	// never aborts egCtx and strands chunks already holding a semaphore
	// slot.
	dispatch := func(task *graph.Task) {
		eg.Go(func() error {
			release, err := sem.WaitAcquire(egCtx)
			if err != nil {
				resultCh <- result{task: task}
				return nil
			}
			defer release()
			s.runOne(parent, task, fx)
			resultCh <- result{task: task}
			return nil
		})
	}
	go func() {
		_ = eg.Wait()
		close(resultCh)
	}()

	ready := append([]*graph.Task(nil), g.Ready()...)
	canceled := false

	// inFlight counts tasks dispatched but not yet reported back; once
	// canceled, newly-ready tasks are deliberately never dispatched, so
	// inFlight (not the graph's total task count) is what the wait loop
	// must drain to zero.
	inFlight := 0
	for _, t := range ready {
		dispatch(t)
		inFlight++
	}
	ready = nil

	for inFlight > 0 {
		if !canceled {
			if err := parent.CheckCanceled(); err != nil {
				fx.trySet(err)
				canceled = true
			}
		}
		r := <-resultCh
		inFlight--
		newlyReady := g.MarkFinished(r.task)
		if canceled {
			// Cancellation skips subsequent dispatch but lets chunks
			// already running finish their finalize block (§5).
			continue
		}
		for _, t := range newlyReady {
			dispatch(t)
			inFlight++
		}
	}

	if canceled {
		clog.Warnf(parent.Std(), "scheduler: invocation canceled, subsequent chunk dispatch skipped")
	}
	return fx.get()
}

func (s *Scheduler) runOne(parent buildctx.Ctx, task *graph.Task, fx *firstException) {
	wctx := s.newWrapped(parent)
	defer s.finalize(wctx, task)

	if err := fx.get(); err != nil {
		// An earlier chunk already failed: skip the build step but still
		// run finalize (§4.5 step 3).
		return
	}
	if err := parent.CheckCanceled(); err != nil {
		fx.trySet(err)
		return
	}
	if err := s.run(wctx, task); err != nil {
		clog.Errorf(parent.Std(), "chunk %s failed: %v", task.Chunk, err)
		fx.trySet(err)
	}
}

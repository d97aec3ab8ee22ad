// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package asynctask tracks the fire-and-forget background work the
// Lifecycle Coordinator launches (temp-directory cleanup, leftover output
// deletion) and drains on every exit path, honoring cancellation by
// polling rather than blocking indefinitely (§4.1 step 8, §5).
package asynctask

import (
	"context"
	"sync"
	"time"

	"github.com/jetcirc/ibuild/internal/clog"
)

// pollInterval matches the teacher's own gated-progress-report interval
// (build/plan.go uses a 1s cadence for its own polling loop; the spec
// fixes this one at 500ms).
const pollInterval = 500 * time.Millisecond

// Tracker tracks outstanding async tasks.
type Tracker struct {
	wg sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Go launches fn in a new goroutine, tracked by the Tracker.
func (t *Tracker) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := fn(ctx); err != nil {
			clog.Warnf(ctx, "async task %s failed: %v", name, err)
			t.mu.Lock()
			t.errs = append(t.errs, err)
			t.mu.Unlock()
		}
	}()
}

// Wait blocks until every tracked task has finished, or ctx is canceled,
// polling every 500ms so cancellation is noticed promptly without the
// caller needing its own goroutine (§4.1 step 8).
func (t *Tracker) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Errs returns the errors collected from failed tasks so far.
func (t *Tracker) Errs() []error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]error, len(t.errs))
	copy(out, t.errs)
	return out
}

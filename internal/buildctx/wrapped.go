// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildctx

import (
	"context"
	"sync"

	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/model"
)

// WrappedContext gives one chunk a private view of Local user-data while
// sharing Global user-data with the delegate, so the Parallel Scheduler can
// run many chunks concurrently against one invocation without them
// clobbering each other's per-chunk bookkeeping (§4.2).
type WrappedContext struct {
	delegate Ctx

	mu             sync.Mutex
	local          map[string]any
	tombstoned     map[string]bool
	errorsDetected bool
}

// Wrap creates a WrappedContext delegating to parent.
func Wrap(parent Ctx) *WrappedContext {
	return &WrappedContext{
		delegate:   parent,
		local:      map[string]any{},
		tombstoned: map[string]bool{},
	}
}

func (w *WrappedContext) Scope() model.Scope               { return w.delegate.Scope() }
func (w *WrappedContext) Config() map[string]string        { return w.delegate.Config() }
func (w *WrappedContext) BuilderParams() map[string]string { return w.delegate.BuilderParams() }
func (w *WrappedContext) Project() any                     { return w.delegate.Project() }
func (w *WrappedContext) InvocationID() string              { return w.delegate.InvocationID() }
func (w *WrappedContext) Std() context.Context             { return w.delegate.Std() }
func (w *WrappedContext) Bus() *bus.Bus                    { return w.delegate.Bus() }
func (w *WrappedContext) CheckCanceled() error              { return w.delegate.CheckCanceled() }
func (w *WrappedContext) SetDone(done float64)               { w.delegate.SetDone(done) }
func (w *WrappedContext) DoneFraction() float64              { return w.delegate.DoneFraction() }

// Message passes the message through to the delegate's bus, and also
// marks this wrapped context's own ErrorsDetected flag on ERROR messages,
// isolated from the delegate's and from every other chunk's wrapped
// context (§4.2).
func (w *WrappedContext) Message(source string, kind model.MessageKind, text string) {
	w.delegate.Message(source, kind, text)
	if kind == model.Error {
		w.mu.Lock()
		w.errorsDetected = true
		w.mu.Unlock()
	}
}

func (w *WrappedContext) Progress(text string) {
	w.delegate.Progress(text)
}

func (w *WrappedContext) ErrorsDetected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errorsDetected
}

func (w *WrappedContext) ClearErrorsDetected() {
	w.mu.Lock()
	w.errorsDetected = false
	w.mu.Unlock()
}

// Get reads key: Global keys pass through to the delegate unconditionally;
// Local keys are resolved against the private store, with a tombstone
// (explicit write of nil) shadowing any earlier local value.
func (w *WrappedContext) Get(key Key) any {
	if key.Kind == Global {
		return w.delegate.Get(key)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tombstoned[key.Name] {
		return nil
	}
	return w.local[key.Name]
}

// Put writes key: Global keys pass through to the delegate; Local keys are
// isolated in the private store, and a nil value records a tombstone
// instead of merely deleting the map entry, so a subsequent Get never
// falls back to a value the delegate might hold under the same name.
func (w *WrappedContext) Put(key Key, value any) {
	if key.Kind == Global {
		w.delegate.Put(key, value)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if value == nil {
		w.tombstoned[key.Name] = true
		delete(w.local, key.Name)
		return
	}
	delete(w.tombstoned, key.Name)
	w.local[key.Name] = value
}

var _ Ctx = (*WrappedContext)(nil)

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package concurrency provides the bounded worker-pool primitives used by
// the parallel scheduler and by asynchronous cleanup tasks.
package concurrency

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds the number of concurrent callers of Do.
type Semaphore struct {
	name string
	ch   chan int

	waits atomic.Int64
	reqs  atomic.Int64
}

// New creates a new semaphore with name and capacity n.
func New(name string, n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	ch := make(chan int, n)
	for i := 0; i < n; i++ {
		ch <- i + 1
	}
	return &Semaphore{name: name, ch: ch}
}

// WaitAcquire acquires a slot, returning a release func.
func (s *Semaphore) WaitAcquire(ctx context.Context) (func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case tid := <-s.ch:
		s.reqs.Add(1)
		return func() { s.ch <- tid }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// Do runs f while holding a slot of the semaphore.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	release, err := s.WaitAcquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return f(ctx)
}

// Name returns the semaphore's name.
func (s *Semaphore) Name() string { return s.name }

// Capacity returns the semaphore's capacity.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumWaits returns the number of goroutines currently waiting to acquire.
func (s *Semaphore) NumWaits() int { return int(s.waits.Load()) }

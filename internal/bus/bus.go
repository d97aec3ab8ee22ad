// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package bus fans out progress, diagnostic, and lifecycle messages to
// subscribed handlers, grounded on the teacher's StatusReporter interface
// (build/status_report.go) generalized from a single reporter to an
// ordered list of subscribers.
package bus

import (
	"sync"

	"github.com/jetcirc/ibuild/internal/model"
)

// Phase of a BuildingTargetProgressMessage.
type Phase int

const (
	Started Phase = iota
	Finished
)

// ProgressMessage is a free-text progress update.
type ProgressMessage struct {
	Text string
}

// CompilerMessage is a diagnostic emitted by the driver or a builder.
type CompilerMessage struct {
	Source string
	Kind   model.MessageKind
	Text   string
}

// FileDeletedEvent reports output paths removed by the Output Cleaner or
// by deleted-path processing.
type FileDeletedEvent struct {
	Paths []string
}

// BuildingTargetProgressMessage reports a chunk's targets starting or
// finishing their build.
type BuildingTargetProgressMessage struct {
	Targets []*model.Target
	Phase   Phase
}

// DoneSomethingNotification reports that at least one builder returned OK
// this invocation.
type DoneSomethingNotification struct{}

// Handler receives bus messages. Implementations must be safe for
// concurrent use: chunks running in different workers may emit
// concurrently.
type Handler interface {
	OnProgress(ProgressMessage)
	OnCompilerMessage(CompilerMessage)
	OnFileDeleted(FileDeletedEvent)
	OnBuildingTarget(BuildingTargetProgressMessage)
	OnDoneSomething(DoneSomethingNotification)
}

// NopHandler implements Handler with no-ops; embed it to implement only
// the callbacks a test cares about.
type NopHandler struct{}

func (NopHandler) OnProgress(ProgressMessage)                     {}
func (NopHandler) OnCompilerMessage(CompilerMessage)              {}
func (NopHandler) OnFileDeleted(FileDeletedEvent)                 {}
func (NopHandler) OnBuildingTarget(BuildingTargetProgressMessage) {}
func (NopHandler) OnDoneSomething(DoneSomethingNotification)      {}

// Bus fans out messages to every subscribed Handler, in subscription
// order. Subscribe/Emit are both safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h to receive all future messages.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

// Progress emits a ProgressMessage.
func (b *Bus) Progress(text string) {
	m := ProgressMessage{Text: text}
	for _, h := range b.snapshot() {
		h.OnProgress(m)
	}
}

// Message emits a CompilerMessage.
func (b *Bus) Message(source string, kind model.MessageKind, text string) {
	m := CompilerMessage{Source: source, Kind: kind, Text: text}
	for _, h := range b.snapshot() {
		h.OnCompilerMessage(m)
	}
}

// FilesDeleted emits a FileDeletedEvent, if paths is non-empty.
func (b *Bus) FilesDeleted(paths []string) {
	if len(paths) == 0 {
		return
	}
	m := FileDeletedEvent{Paths: paths}
	for _, h := range b.snapshot() {
		h.OnFileDeleted(m)
	}
}

// BuildingTarget emits a BuildingTargetProgressMessage.
func (b *Bus) BuildingTarget(targets []*model.Target, phase Phase) {
	m := BuildingTargetProgressMessage{Targets: targets, Phase: phase}
	for _, h := range b.snapshot() {
		h.OnBuildingTarget(m)
	}
}

// DoneSomething emits a DoneSomethingNotification.
func (b *Bus) DoneSomething() {
	m := DoneSomethingNotification{}
	for _, h := range b.snapshot() {
		h.OnDoneSomething(m)
	}
}

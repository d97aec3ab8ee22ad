// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package builder

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jetcirc/ibuild/internal/buildctx"
	"github.com/jetcirc/ibuild/internal/model"
)

// registration is one RegisterOutput call buffered for later event firing.
type registration struct {
	target model.TargetID
	source string
	output string
}

// DefaultOutputConsumer is the chunk-scoped OutputConsumer the Chunk
// Runner hands to module-level builders during a pass.
type DefaultOutputConsumer struct {
	// Persist records a registration into the owning target's persistent
	// Source<->Output Map as it happens, so a later pass or invocation can
	// find it even if this chunk's build is interrupted before
	// FireFileGeneratedEvents runs. The Chunk Runner wires this to the
	// DataManager's per-target map; nil is a valid no-op for tests that
	// don't care about persistence.
	Persist func(target model.TargetID, source, output string)

	mu   sync.Mutex
	regs []registration

	// persisted counts instrumented-class persistence calls; nothing reads
	// it, since the driver has no instrumentation pass of its own to hand
	// off to.
	persisted int

	// IndexWriter, when set, backs WriteClasspathIndex; nil makes it a
	// no-op, matching JPS's generate.classpath.index flag being inert by
	// default.
	IndexWriter func(root string, outputs []string) error
}

// NewOutputConsumer creates an empty consumer.
func NewOutputConsumer() *DefaultOutputConsumer {
	return &DefaultOutputConsumer{}
}

func (c *DefaultOutputConsumer) RegisterOutput(target model.TargetID, source, output string) {
	c.mu.Lock()
	c.regs = append(c.regs, registration{target: target, source: source, output: output})
	persist := c.Persist
	c.mu.Unlock()
	if persist != nil {
		persist(target, source, output)
	}
}

func (c *DefaultOutputConsumer) PersistInstrumentedClasses(ctx buildctx.Ctx) {
	c.mu.Lock()
	c.persisted++
	c.mu.Unlock()
}

// FireFileGeneratedEvents reports generated outputs on the bus, grouped
// by source in deterministic order; the driver has no dedicated
// file-generated event kind, so each source's batch is surfaced as an
// INFO compiler message (§4.6.1 "Finally"), and DoneSomething fires once
// if anything was registered.
func (c *DefaultOutputConsumer) FireFileGeneratedEvents(ctx buildctx.Ctx) {
	c.mu.Lock()
	regs := make([]registration, len(c.regs))
	copy(regs, c.regs)
	c.mu.Unlock()

	if len(regs) == 0 {
		return
	}
	bySource := map[string][]string{}
	for _, r := range regs {
		bySource[r.source] = append(bySource[r.source], r.output)
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		outs := bySource[s]
		sort.Strings(outs)
		ctx.Message("output-consumer", model.Info, s+" -> "+strings.Join(outs, ", "))
	}
	ctx.Bus().DoneSomething()
}

// WriteClasspathIndex persists a classpath.index file listing every
// output registered this pass, in registration order (classpath order),
// under root. A no-op when IndexWriter is unset — the flag exists but
// has nowhere to write without a real project root wired in.
func (c *DefaultOutputConsumer) WriteClasspathIndex(root string) error {
	if c.IndexWriter == nil {
		return nil
	}
	c.mu.Lock()
	outputs := make([]string, 0, len(c.regs))
	for _, r := range c.regs {
		outputs = append(outputs, filepath.ToSlash(r.output))
	}
	c.mu.Unlock()
	return c.IndexWriter(root, outputs)
}

func (c *DefaultOutputConsumer) Clear() {
	c.mu.Lock()
	c.regs = nil
	c.mu.Unlock()
}

var _ OutputConsumer = (*DefaultOutputConsumer)(nil)

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package timing provides a stage stopwatch for measuring how long each
// named stage of a build invocation takes, grounded on the teacher's ui package (FormatDuration and its
// omit-if-too-short reporting threshold), generalized from a
// terminal-spinner concern into a plain recorder any bus handler can
// format.
package timing

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReportThreshold is the minimum duration worth reporting; entries
// shorter than this are dropped from Stopwatch.Summary, mirroring the
// teacher's terminal UI omitting spinner durations too short to matter.
const ReportThreshold = 10 * time.Millisecond

// Stopwatch accumulates named stage durations across a build invocation.
// Safe for concurrent use by chunks running on different scheduler
// workers.
type Stopwatch struct {
	mu    sync.Mutex
	total map[string]time.Duration
	count map[string]int
}

// New creates an empty Stopwatch.
func New() *Stopwatch {
	return &Stopwatch{total: map[string]time.Duration{}, count: map[string]int{}}
}

// Start returns a function that, when called, records the time elapsed
// since Start as an observation of stage. Typical use: defer sw.Start("translating")().
func (sw *Stopwatch) Start(stage string) func() {
	begin := time.Now()
	return func() {
		sw.Record(stage, time.Since(begin))
	}
}

// Record adds one observation of stage's duration.
func (sw *Stopwatch) Record(stage string, d time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.total[stage] += d
	sw.count[stage]++
}

// Total returns the accumulated duration for stage.
func (sw *Stopwatch) Total(stage string) time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.total[stage]
}

// Summary formats every recorded stage whose accumulated duration is at
// least ReportThreshold, as "stage: <FormatDuration> (N calls)", sorted by descending
// duration then by name for ties.
func (sw *Stopwatch) Summary() []string {
	sw.mu.Lock()
	type entry struct {
		stage string
		total time.Duration
		count int
	}
	entries := make([]entry, 0, len(sw.total))
	for stage, d := range sw.total {
		if d < ReportThreshold {
			continue
		}
		entries = append(entries, entry{stage: stage, total: d, count: sw.count[stage]})
	}
	sw.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].total != entries[j].total {
			return entries[i].total > entries[j].total
		}
		return entries[i].stage < entries[j].stage
	})
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s: %s (%d call%s)", e.stage, FormatDuration(e.total), e.count, plural(e.count)))
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// FormatDuration renders d as "X.XXs", "XmXX.XXs" or "XhXmXX.XXs", and a
// whole number of hours as just "Xh", adapted from the teacher's
// ui.FormatDuration.
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	var sb strings.Builder
	sb.Grow(32)

	hours := d.Truncate(time.Hour)
	d -= hours
	mins := d.Truncate(time.Minute)
	d -= mins

	if hours > 0 {
		fmt.Fprintf(&sb, "%s", strings.TrimSuffix(hours.String(), "0m0s"))
		if mins == 0 && d == 0 {
			return sb.String()
		}
	}
	if hours > 0 || mins > 0 {
		fmt.Fprintf(&sb, "%dm", int64(mins/time.Minute))
		if d < 10*time.Second {
			fmt.Fprint(&sb, "0")
		}
	}
	fmt.Fprintf(&sb, "%02.02fs", d.Seconds())
	return sb.String()
}

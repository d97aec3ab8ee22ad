// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config resolves the driver's environment-driven configuration
// knobs, grounded on the teacher's build/limits.go DefaultLimits pattern:
// one comma-separated override env var plus plain boolean env vars.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jetcirc/ibuild/internal/clog"
	"github.com/jetcirc/ibuild/internal/runtimex"
)

// maxWorkerThreadsCap mirrors MAX_BUILDER_THREADS' fixed ceiling (§5):
// max(1, min(6, CPU-1)), overridable via IBUILD_LIMITS.
const maxWorkerThreadsCap = 6

// Limits holds the resolved worker-pool sizing.
type Limits struct {
	// MaxBuilderThreads is the worker pool size for the Parallel
	// Scheduler.
	MaxBuilderThreads int
}

var (
	limitsOnce sync.Once
	limits     Limits
)

// DefaultLimits returns the process-wide resolved Limits, computing them
// once from runtimex.NumCPU() and the IBUILD_LIMITS environment variable
// (comma-separated key=value pairs, e.g. "threads=4").
func DefaultLimits(ctx context.Context) Limits {
	limitsOnce.Do(func() {
		cpu := runtimex.NumCPU()
		threads := cpu - 1
		if threads > maxWorkerThreadsCap {
			threads = maxWorkerThreadsCap
		}
		if threads < 1 {
			threads = 1
		}
		limits = Limits{MaxBuilderThreads: threads}

		overrides := os.Getenv("IBUILD_LIMITS")
		if overrides == "" {
			return
		}
		for _, ov := range strings.Split(overrides, ",") {
			ov = strings.TrimSpace(ov)
			if ov == "" {
				continue
			}
			k, v, ok := strings.Cut(ov, "=")
			if !ok {
				clog.Warnf(ctx, "ignoring malformed IBUILD_LIMITS entry %q", ov)
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				clog.Warnf(ctx, "ignoring IBUILD_LIMITS entry %s=%s: not a positive integer", k, v)
				continue
			}
			switch k {
			case "threads":
				limits.MaxBuilderThreads = n
			default:
				clog.Warnf(ctx, "unknown IBUILD_LIMITS key %q", k)
			}
		}
	})
	return limits
}

// BoolEnv reads a boolean environment variable (accepting the usual
// strconv.ParseBool spellings), defaulting to def if unset or unparsable.
func BoolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ParallelBuildEnabled reports whether compile.parallel is enabled
// (IBUILD_PARALLEL env var, default true).
func ParallelBuildEnabled() bool {
	return BoolEnv("IBUILD_PARALLEL", true)
}

// GenerateClasspathIndex reports whether classpath.index generation is
// requested (IBUILD_GENERATE_CLASSPATH_INDEX env var, default false;
// supplemented feature recovered from the original JPS builder).
func GenerateClasspathIndex() bool {
	return BoolEnv("IBUILD_GENERATE_CLASSPATH_INDEX", false)
}

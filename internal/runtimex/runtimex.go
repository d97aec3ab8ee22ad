// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex fixes the following API in standard runtime package.
// - NumCPU()
package runtimex

import "runtime"

var ncpu int

func init() {
	ncpu = getproccount()
	if ncpu == 0 {
		ncpu = runtime.NumCPU()
	}
}

// NumCPU returns the number of logical CPUs usable by the current process.
// On Windows, runtime.NumCPU() only returns the information for a single Processor Group (up to 64).
// runtimex.NumCPU() uses GetActiveProcessorCount to get cpu counts from all Processor Groups.
// On non-Windows, runtime.NumCPU() is used as is.
func NumCPU() int {
	return ncpu
}

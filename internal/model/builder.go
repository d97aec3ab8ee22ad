// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package model

// ExitCode is the result of one builder invocation.
type ExitCode int

const (
	// NothingDone means the builder found no work to do.
	NothingDone ExitCode = iota
	// OK means the builder did work successfully.
	OK
	// Abort means the builder deliberately stopped the build
	// (§7 "Stop-build").
	Abort
	// AdditionalPassRequired means the module-level builders loop should
	// run another outer iteration.
	AdditionalPassRequired
	// ChunkRebuildRequired means every file in the chunk should be
	// re-marked dirty and the chunk rebuilt from scratch. Honored at
	// most once per chunk per invocation.
	ChunkRebuildRequired
)

func (e ExitCode) String() string {
	switch e {
	case OK:
		return "OK"
	case Abort:
		return "ABORT"
	case AdditionalPassRequired:
		return "ADDITIONAL_PASS_REQUIRED"
	case ChunkRebuildRequired:
		return "CHUNK_REBUILD_REQUIRED"
	default:
		return "NOTHING_DONE"
	}
}

// Category is an ordered builder category. Categories run in a fixed order
// within each round of the module-level builders pipeline.
type Category int

const (
	// SourceGenerating builders emit additional source files consumed by
	// later categories.
	SourceGenerating Category = iota
	// Translating builders turn sources into intermediate or final
	// output artifacts.
	Translating
	// ClassPostProcessing builders run after translation, e.g.
	// bytecode instrumentation.
	ClassPostProcessing
	// Packaging builders assemble final archives from prior outputs.
	Packaging
)

// Categories is the fixed run order of builder categories.
var Categories = []Category{SourceGenerating, Translating, ClassPostProcessing, Packaging}

func (c Category) String() string {
	switch c {
	case SourceGenerating:
		return "source-generating"
	case Translating:
		return "translating"
	case ClassPostProcessing:
		return "class-post-processing"
	case Packaging:
		return "packaging"
	default:
		return "unknown"
	}
}

// MessageKind is the severity of a CompilerMessage.
type MessageKind int

const (
	Info MessageKind = iota
	Warning
	Error
)

func (k MessageKind) String() string {
	switch k {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/maruel/subcommands"

	"github.com/jetcirc/ibuild/internal/asynctask"
	"github.com/jetcirc/ibuild/internal/builder"
	"github.com/jetcirc/ibuild/internal/bus"
	"github.com/jetcirc/ibuild/internal/clean"
	"github.com/jetcirc/ibuild/internal/clog"
	"github.com/jetcirc/ibuild/internal/config"
	"github.com/jetcirc/ibuild/internal/fakebuild"
	"github.com/jetcirc/ibuild/internal/lifecycle"
	"github.com/jetcirc/ibuild/internal/model"
	"github.com/jetcirc/ibuild/internal/runner"
	"github.com/jetcirc/ibuild/internal/store"
)

const buildUsage = `build [-state-dir <dir>] [-rebuild] [-force-clean]

Runs one invocation of the sample in-memory project (a non-module "gen"
target, a "lib" module target depending on it, and an "app" module target
depending on lib), demonstrating the
dependency-ordered, dirty-tracked, persistent chunk pipeline end to end.
A real deployment supplies its own project via the lifecycle and graph
packages instead of fakebuild's sample index.
`

func cmdBuild() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "build [-state-dir <dir>] [-rebuild] [-force-clean]",
		ShortDesc: "runs the sample project through the incremental build driver",
		LongDesc:  buildUsage,
		CommandRun: func() subcommands.CommandRun {
			c := &buildRun{}
			c.init()
			return c
		},
	}
}

type buildRun struct {
	subcommands.CommandRunBase

	stateDir   string
	rebuild    bool
	forceClean bool
}

func (c *buildRun) init() {
	c.Flags.StringVar(&c.stateDir, "state-dir", ".ibuild", "directory holding persisted build state")
	c.Flags.BoolVar(&c.rebuild, "rebuild", false, "force a whole-project rebuild")
	c.Flags.BoolVar(&c.forceClean, "force-clean", false, "force cleaning caches before building")
}

func (c *buildRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := ctxFrom(a)
	if err := c.run(ctx, args); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, buildUsage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *buildRun) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("build: unexpected arguments %v: %w", args, flag.ErrHelp)
	}
	if err := os.MkdirAll(c.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	dataMgr, resumed, err := store.Open(c.stateDir)
	if err != nil {
		return fmt.Errorf("opening persisted state: %w", err)
	}
	firstRun := !resumed
	timestamps, err := store.OpenTimestampStorage(c.stateDir)
	if err != nil {
		return fmt.Errorf("opening timestamp store: %w", err)
	}
	if firstRun || c.rebuild {
		seedDirty(dataMgr.DirtyStore())
	}

	index, fsFake := sampleProject()

	b := bus.New()
	b.Subscribe(&consoleReporter{ctx: ctx})

	clearedReg := clean.NewClearedRegistry()
	tasks := asynctask.New()
	cleaner := clean.New(fsFake, nil, clearedReg, tasks)

	echoTarget := &fakebuild.EchoTargetBuilder{}
	registry := builder.NewRegistry(
		[]builder.TargetBuilder{echoTarget},
		[]builder.ModuleLevelBuilder{
			&fakebuild.EchoModuleBuilder{Cat: model.Translating},
			&fakebuild.EchoModuleBuilder{Cat: model.Packaging},
		},
		nil, nil,
	)

	coord := lifecycle.New(index, registry, dataMgr, timestamps, cleaner, clearedReg, b,
		nil, func() *runner.Runner {
			return &runner.Runner{
				Registry:        registry,
				Dirty:           dataMgr.DirtyStore(),
				Forms:           dataMgr.GetSourceToFormMap(),
				Safe:            dataMgr.GetOutputToSourceRegistry(),
				FS:              fsFake,
				Cleared:         clearedReg,
				SourceOutputFor: dataMgr.GetSourceToOutputMap,
				TestMode:        false,
			}
		})

	scope := model.AllScope{Rebuild: c.rebuild}
	clog.Infof(ctx, "starting build: state-dir=%s rebuild=%t force-clean=%t threads=%d",
		c.stateDir, c.rebuild, c.forceClean, config.DefaultLimits(ctx).MaxBuilderThreads)

	if err := coord.Build(ctx, scope, c.forceClean); err != nil {
		return err
	}
	clog.Infof(ctx, "build finished: %d target(s) built by the target builder", len(echoTarget.Calls))
	return nil
}

// consoleReporter is the minimal bus.Handler the CLI subscribes, printing
// progress and diagnostics through clog the way the teacher's subcommands
// log through glog rather than building a dedicated terminal UI.
type consoleReporter struct {
	bus.NopHandler
	ctx context.Context
}

func (r *consoleReporter) OnProgress(m bus.ProgressMessage) {
	clog.Infof(r.ctx, "%s", m.Text)
}

func (r *consoleReporter) OnCompilerMessage(m bus.CompilerMessage) {
	switch m.Kind {
	case model.Error:
		clog.Errorf(r.ctx, "[%s] %s", m.Source, m.Text)
	case model.Warning:
		clog.Warnf(r.ctx, "[%s] %s", m.Source, m.Text)
	default:
		clog.Infof(r.ctx, "[%s] %s", m.Source, m.Text)
	}
}

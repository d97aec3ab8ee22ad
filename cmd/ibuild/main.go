// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command ibuild is the minimal CLI shell over the incremental build
// driver: just enough to invoke a build end-to-end, not a general UI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/maruel/subcommands"
)

// application wraps subcommands.DefaultApplication with the invocation's
// root context, the way the teacher's luci/common/cli.Application carries
// a context alongside the subcommand tree; subcommand Run methods recover
// it via ctxFrom instead of threading it through subcommands.Run's
// context-free signature.
type application struct {
	*subcommands.DefaultApplication
	ctx context.Context
}

func (a *application) GetContext() context.Context { return a.ctx }

// ctxFrom recovers the root context from a subcommands.Application, or
// context.Background() if it wasn't built as an *application.
func ctxFrom(a subcommands.Application) context.Context {
	if c, ok := a.(interface{ GetContext() context.Context }); ok {
		return c.GetContext()
	}
	return context.Background()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sig; ok {
			cancel()
		}
	}()

	app := &application{
		ctx: ctx,
		DefaultApplication: &subcommands.DefaultApplication{
			Name:  "ibuild",
			Title: "incremental build driver",
			Commands: []*subcommands.Command{
				cmdBuild(),
				subcommands.CmdHelp,
			},
		},
	}
	flag.Usage = func() {
		subcommands.Usage(os.Stderr, app, false)
	}
	flag.Parse()

	os.Exit(subcommands.Run(app, flag.Args()))
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmdutil

import (
	"flag"
	"os"
	"sync"

	"github.com/google/gops/agent"
	"github.com/grailbio/permits/log"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/vlog"
)

var (
	runnerOnce sync.Once
	gopsFlag   = flag.Bool("gops", false, "enable the gops listener")

	shutdownMu    sync.Mutex
	shutdownFuncs []func()
)

// RegisterShutdown registers a function to be run after the command's
// runner returns. Functions run in the reverse order of registration.
func RegisterShutdown(f func()) {
	shutdownMu.Lock()
	shutdownFuncs = append(shutdownFuncs, f)
	shutdownMu.Unlock()
}

func runShutdown() {
	shutdownMu.Lock()
	fns := shutdownFuncs
	shutdownFuncs = nil
	shutdownMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// RunnerFunc is an adapter that turns regular functions into cmdline.Runners.
type RunnerFunc func(*cmdline.Env, []string) error

// Run implements the cmdline.Runner interface method by calling f(env, args).
// It also ensures that vlog is configured, that package log writes to vlog,
// that a gops agent is listening if requested by -gops or $GOPS, and that
// shutdown functions are run and logs flushed at the end.
func (f RunnerFunc) Run(env *cmdline.Env, args []string) error {
	runnerOnce.Do(func() {
		vlog.ConfigureLibraryLoggerFromFlags()
		log.SetOutputter(VlogOutputter{})
		if _, ok := os.LookupEnv("GOPS"); ok || *gopsFlag {
			if err := agent.Listen(agent.Options{}); err != nil {
				log.Print(err)
			} else {
				RegisterShutdown(agent.Close)
			}
		}
	})
	err := f(env, args)

	runShutdown()
	vlog.FlushLog()
	return err
}

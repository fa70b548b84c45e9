// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command semstress exercises a semaphore under contention and
// verifies that permits are granted in FIFO order and that capacity
// is conserved.
package main

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/grailbio/permits/cmdutil"
	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/log"
	"golang.org/x/time/rate"
	"v.io/x/lib/cmdline"
)

var (
	capacityFlag int
	waitersFlag  int
	holdFlag     time.Duration
	rateFlag     float64
	timeoutFlag  time.Duration
)

func run(env *cmdline.Env, args []string) error {
	if len(args) != 0 {
		return env.UsageErrorf("semstress takes no arguments")
	}
	if capacityFlag < 1 || waitersFlag < 0 {
		return env.UsageErrorf("-capacity must be positive and -waiters nonnegative")
	}
	limit := rate.Inf
	if rateFlag > 0 {
		limit = rate.Limit(rateFlag)
	}
	ctx := context.Background()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}
	r, err := stress(ctx, config{
		Capacity: capacityFlag,
		Waiters:  waitersFlag,
		Hold:     holdFlag,
		Rate:     limit,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "granted %d waiters in %s; final capacity %d/%d\n",
		r.Granted, r.Elapsed.Round(time.Millisecond), r.FinalCapacity, capacityFlag)
	if r.OutOfOrder > 0 {
		return errors.E(errors.Integrity, fmt.Sprintf("%d grants out of FIFO order", r.OutOfOrder))
	}
	if r.FinalCapacity != capacityFlag {
		return errors.E(errors.Integrity, fmt.Sprintf("capacity not conserved: %d != %d", r.FinalCapacity, capacityFlag))
	}
	log.Debug.Printf("semstress: peak holders %d", r.PeakHolders)
	return nil
}

func newCmdRoot() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:   "semstress",
		Runner: cmdutil.RunnerFunc(run),
		Short:  "Stress a FIFO semaphore",
		Long: `
Command semstress drains a semaphore, queues a number of waiters in
order, and then returns the initial permits. Each waiter holds its
permit for a while and releases it, handing it to the next waiter.
semstress fails if any waiter is granted before one that queued
earlier, or if the semaphore does not end with its initial capacity.
`,
	}
	cmd.Flags.IntVar(&capacityFlag, "capacity", 4, "number of permits")
	cmd.Flags.IntVar(&waitersFlag, "waiters", 1000, "number of queued acquisitions")
	cmd.Flags.DurationVar(&holdFlag, "hold", time.Millisecond, "how long each waiter holds its permit")
	cmd.Flags.Float64Var(&rateFlag, "rate", 0, "maximum acquisitions per second while queueing; 0 means unlimited")
	cmd.Flags.DurationVar(&timeoutFlag, "timeout", 0, "abandon the run after this long; 0 means no timeout")
	return cmd
}

func main() {
	log.AddFlags()
	cmdline.HideGlobalFlagsExcept(regexp.MustCompile(`^log$`))
	cmdline.Main(newCmdRoot())
}

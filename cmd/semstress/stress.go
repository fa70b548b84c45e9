// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/log"
	"github.com/grailbio/permits/semaphore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type config struct {
	Capacity int
	Waiters  int
	Hold     time.Duration
	// Rate limits how quickly waiters are queued.
	Rate rate.Limit
}

type report struct {
	Granted       int
	OutOfOrder    int
	PeakHolders   int
	FinalCapacity int
	Elapsed       time.Duration
}

// stress drains a semaphore of capacity cfg.Capacity, queues
// cfg.Waiters acquisitions in order, and then returns the drained
// permits. Each waiter checks that its predecessor was granted before
// it, holds the permit for cfg.Hold, and releases it.
func stress(ctx context.Context, cfg config) (report, error) {
	var (
		r       report
		start   = time.Now()
		sem     = semaphore.New(cfg.Capacity)
		limiter = rate.NewLimiter(cfg.Rate, 1)
		handles = make([]*semaphore.Handle, cfg.Waiters)
	)
	for i := 0; i < cfg.Capacity; i++ {
		if !sem.Acquire().Granted() {
			return r, errors.E(errors.Integrity, "initial permit was not granted")
		}
	}
	for i := range handles {
		if err := limiter.Wait(ctx); err != nil {
			sem.Close()
			return r, errors.E(err, "queueing waiters")
		}
		handles[i] = sem.Acquire()
	}
	log.Debug.Printf("semstress: %v", sem)

	var (
		granted, outOfOrder, holders, peak int32
		g, gctx                            = errgroup.WithContext(ctx)
	)
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			if err := h.Wait(gctx); err != nil {
				return err
			}
			if i > 0 && !handles[i-1].Granted() {
				atomic.AddInt32(&outOfOrder, 1)
			}
			atomic.AddInt32(&granted, 1)
			n := atomic.AddInt32(&holders, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			if cfg.Hold > 0 {
				time.Sleep(cfg.Hold)
			}
			atomic.AddInt32(&holders, -1)
			sem.Release()
			return nil
		})
	}
	for i := 0; i < cfg.Capacity; i++ {
		sem.Release()
	}
	err := g.Wait()
	if err != nil {
		// Waiters that gave up were canceled; release nothing on their behalf.
		return r, errors.E(err, "waiting for permits")
	}
	r.Granted = int(granted)
	r.OutOfOrder = int(outOfOrder)
	r.PeakHolders = int(peak)
	r.FinalCapacity = sem.CurrentCapacity()
	r.Elapsed = time.Since(start)
	if int(peak) > cfg.Capacity {
		return r, errors.E(errors.Integrity, "more holders than permits")
	}
	return r, nil
}

// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package limiter implements a weighted concurrency limiter with
// support for contexts.
package limiter

import (
	"context"

	"github.com/grailbio/permits/semaphore"
	"github.com/grailbio/permits/sync/ctxsync"
)

// A Limiter enforces concurrency limits among a set of goroutines.
// It maintains a bucket of tokens; a number of tokens (e.g.,
// representing the cost of an operation) must be acquired by a
// goroutine before proceeding. A limiter is fair: goroutines are
// granted their tokens in the order in which they called Acquire.
// Only the goroutine at the head of the line collects tokens, so
// partially satisfied acquisitions cannot deadlock one another.
//
// A nil limiter issues an infinite number of tokens.
type Limiter struct {
	mu  ctxsync.Mutex
	sem *semaphore.Semaphore
}

// New creates a new limiter with 0 tokens.
func New() *Limiter {
	return &Limiter{sem: semaphore.New(0)}
}

// Acquire blocks until the goroutine is granted the desired number
// of tokens, or until the context is done, in which case the
// context's error is returned and no tokens are held.
func (l *Limiter) Acquire(ctx context.Context, need int) error {
	if l == nil {
		return ctx.Err()
	}
	if err := l.mu.Lock(ctx); err != nil {
		return ctx.Err()
	}
	defer l.mu.Unlock()
	for have := 0; have < need; have++ {
		if err := l.sem.Acquire().Wait(ctx); err != nil {
			l.Release(have)
			return ctx.Err()
		}
	}
	return nil
}

// Release adds a number of tokens back into the limiter.
func (l *Limiter) Release(n int) {
	if l == nil {
		return
	}
	for i := 0; i < n; i++ {
		l.sem.Release()
	}
}

// Available returns the number of tokens that may be acquired
// without waiting.
func (l *Limiter) Available() int {
	if l == nil {
		return -1
	}
	return l.sem.CurrentCapacity()
}

type LimiterIfc interface {
	Release(n int)
	Acquire(ctx context.Context, need int) error
}

var _ LimiterIfc = (*Limiter)(nil)

// Copyright 2022 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package ctxsync provides synchronization primitives whose blocking
// operations respect context cancellation.
package ctxsync

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/semaphore"
)

// Mutex is a context-aware mutex. Goroutines blocked in Lock acquire
// the mutex in the order in which they called Lock. It must not be
// copied. The zero value is ready to use.
type Mutex struct {
	initOnce sync.Once
	sem      *semaphore.Semaphore
	locked   atomic.Bool
}

// Lock attempts to exclusively lock m.  If the m is already locked, it will
// wait until it is unlocked.  If ctx is canceled before the lock can be taken,
// Lock will not take the lock, and a non-nil error is returned.
func (m *Mutex) Lock(ctx context.Context) error {
	m.init()
	if err := m.sem.Acquire().Wait(ctx); err != nil {
		return errors.E(err, "waiting for lock")
	}
	m.locked.Store(true)
	return nil
}

// Unlock unlocks m.  It must be called exactly once iff Lock returns nil.
// Unlock panics if it is called while m is not locked.
func (m *Mutex) Unlock() {
	m.init()
	if !m.locked.CompareAndSwap(true, false) {
		panic("Unlock called on mutex that is not locked")
	}
	m.sem.Release()
}

func (m *Mutex) init() {
	m.initOnce.Do(func() {
		m.sem = semaphore.New(1)
	})
}

// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package semaphore implements a FIFO counting semaphore whose
// acquisitions are represented by handles. Acquire never blocks: it
// returns a Handle that is either granted already or that is granted
// by a later call to Release. Callers drive pending handles to
// completion with Handle.Wait, or by selecting on Handle.Done.
//
// Release hands its permit directly to the oldest waiter, so an
// Acquire that arrives later can never overtake one that is queued.
package semaphore

import (
	"fmt"
	"sync"

	"github.com/gammazero/deque"
	"github.com/grailbio/permits/log"
	"github.com/grailbio/permits/must"
)

// A Semaphore arbitrates a pool of permits among goroutines. Waiters
// are granted permits strictly in the order in which they called
// Acquire. Semaphores are shared by pointer and must not be copied.
type Semaphore struct {
	mu sync.Mutex
	// capacity is the number of available permits. It is zero
	// whenever waiters is nonempty.
	capacity int
	waiters  deque.Deque[*waiter]
	closed   bool
	// poisoned is set when a panic unwinds through a critical
	// section. The semaphore's state cannot be trusted afterwards.
	poisoned bool
}

// New returns a semaphore with the provided number of permits and no
// waiters. New panics if initial is negative.
func New(initial int) *Semaphore {
	if initial < 0 {
		log.Panicf("semaphore.New: invalid capacity: %d", initial)
	}
	return &Semaphore{capacity: initial}
}

// Acquire requests a permit. If one is available, it is taken and the
// returned handle is already granted. Otherwise the caller is queued
// behind earlier waiters and the returned handle is granted by a
// future Release. Contention is never reported as an error.
//
// Once the semaphore is closed, an Acquire that would have to wait
// returns a handle that has already failed with an error of kind
// errors.Unavailable.
func (s *Semaphore) Acquire() *Handle {
	s.lock()
	defer s.unlock()
	if s.capacity > 0 {
		s.capacity--
		s.check()
		return completedHandle
	}
	w := newWaiter()
	if s.closed {
		w.resolve(dropped)
	} else {
		s.waiters.PushBack(w)
	}
	s.check()
	return &Handle{kind: waiting, sem: s, w: w}
}

// Release returns a permit. If goroutines are waiting, the permit is
// transferred to the oldest of them and the available capacity is
// unchanged; otherwise capacity grows by one. Releasing more permits
// than were acquired grows the capacity without bound: the semaphore
// does not track which caller owns which permit.
func (s *Semaphore) Release() {
	s.lock()
	defer s.unlock()
	if s.waiters.Len() > 0 {
		s.waiters.PopFront().resolve(granted)
	} else {
		s.capacity++
	}
	s.check()
}

// CurrentCapacity returns the number of permits available for
// immediate acquisition. It is intended for tests and diagnostics.
func (s *Semaphore) CurrentCapacity() int {
	s.lock()
	defer s.unlock()
	return s.capacity
}

// Waiters returns the number of queued acquisitions.
func (s *Semaphore) Waiters() int {
	s.lock()
	defer s.unlock()
	return s.waiters.Len()
}

// Close drops every queued waiter: their handles fail with an error
// of kind errors.Unavailable. Subsequent acquisitions that would wait
// fail the same way. Permits that are available, or that are released
// after Close, can still be acquired.
func (s *Semaphore) Close() {
	s.lock()
	defer s.unlock()
	s.closed = true
	n := s.waiters.Len()
	for s.waiters.Len() > 0 {
		s.waiters.PopFront().resolve(dropped)
	}
	if n > 0 {
		log.Debug.Printf("semaphore: close dropped %d waiters", n)
	}
	s.check()
}

// String returns a summary of the semaphore's state.
func (s *Semaphore) String() string {
	s.lock()
	defer s.unlock()
	return fmt.Sprintf("semaphore(capacity=%d, waiters=%d)", s.capacity, s.waiters.Len())
}

// cancel removes w from the queue if it is still pending. It returns
// false if w was resolved already.
func (s *Semaphore) cancel(w *waiter) bool {
	s.lock()
	defer s.unlock()
	if w.outcome != pending {
		return false
	}
	i := s.waiters.Index(func(x *waiter) bool { return x == w })
	must.True(i >= 0, "semaphore: pending waiter is missing from the queue")
	s.waiters.Remove(i)
	w.resolve(canceled)
	s.check()
	return true
}

func (s *Semaphore) lock() {
	s.mu.Lock()
	if s.poisoned {
		s.mu.Unlock()
		must.Never("semaphore: used after a panic in a critical section")
		s.mu.Lock()
	}
}

// unlock must be deferred directly so that it can observe panics
// raised while the lock is held.
func (s *Semaphore) unlock() {
	if r := recover(); r != nil {
		s.poisoned = true
		s.mu.Unlock()
		panic(r)
	}
	s.mu.Unlock()
}

func (s *Semaphore) check() {
	must.Truef(s.capacity >= 0, "semaphore: negative capacity %d", s.capacity)
	must.Truef(s.waiters.Len() == 0 || s.capacity == 0,
		"semaphore: %d waiters queued with %d permits available", s.waiters.Len(), s.capacity)
}

// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package semaphore

import (
	"context"

	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/must"
)

type handleKind int

const (
	// invalid is the kind of the zero Handle, which was not returned by
	// Acquire. It is resolved, and failed.
	invalid handleKind = iota
	// completed handles were granted by Acquire itself.
	completed
	// waiting handles are resolved by Release, Close or Cancel.
	waiting
)

// A Handle represents one call to Semaphore.Acquire. It is resolved
// exactly once: either granted, in which case the holder owns a permit
// and must eventually call Release, or failed. Polling a resolved
// handle again does not change the semaphore's state.
//
// The zero Handle holds no permit: it is resolved, and fails with an
// error of kind errors.Invalid.
type Handle struct {
	kind handleKind
	sem  *Semaphore
	w    *waiter
}

// completedHandle is shared by all acquisitions that did not have to wait.
var completedHandle = &Handle{kind: completed}

var closedc = make(chan struct{})

func init() {
	close(closedc)
}

// Done returns a channel that is closed once the handle is resolved.
func (h *Handle) Done() <-chan struct{} {
	if h.kind != waiting {
		return closedc
	}
	return h.w.ready
}

// Poll reports whether the handle is resolved without blocking. A
// resolved handle that failed also returns its error.
func (h *Handle) Poll() (ready bool, err error) {
	switch h.kind {
	case invalid:
		return true, errors.E(errors.Invalid, "semaphore: handle was not returned by Acquire")
	case completed:
		return true, nil
	}
	select {
	case <-h.w.ready:
		return true, h.w.err()
	default:
		return false, nil
	}
}

// Ready tells whether the handle is resolved.
func (h *Handle) Ready() bool {
	ready, _ := h.Poll()
	return ready
}

// Granted tells whether the handle holds a permit.
func (h *Handle) Granted() bool {
	ready, err := h.Poll()
	return ready && err == nil
}

// Err returns the error with which the handle failed, or nil if it is
// pending or granted.
func (h *Handle) Err() error {
	_, err := h.Poll()
	return err
}

// Wait blocks until the handle is resolved or the context is done.
// When the context is done first, the handle is canceled and Wait
// returns an error wrapping the context's error. If the permit was
// granted before the cancellation took effect, Wait returns nil and
// the caller owns the permit.
func (h *Handle) Wait(ctx context.Context) error {
	if ready, err := h.Poll(); ready {
		return err
	}
	select {
	case <-h.w.ready:
		return h.w.err()
	case <-ctx.Done():
		if h.Cancel() {
			return errors.E(ctx.Err(), "semaphore: waiting for permit")
		}
		return h.w.err()
	}
}

// Cancel withdraws a pending handle from the semaphore's queue; the
// handle then fails with an error of kind errors.Canceled. Cancel
// returns false if the handle was already resolved. In particular, a
// granted handle cannot be canceled: its permit must be returned with
// Release.
func (h *Handle) Cancel() bool {
	if h.kind != waiting {
		return false
	}
	return h.sem.cancel(h.w)
}

type outcome int

const (
	pending outcome = iota
	granted
	dropped
	canceled
)

// A waiter is the producer side of a pending handle. Its outcome is
// guarded by the owning semaphore's lock; ready is closed once the
// outcome is final, which publishes it to the handle.
type waiter struct {
	ready   chan struct{}
	outcome outcome
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan struct{})}
}

func (w *waiter) resolve(o outcome) {
	must.True(w.outcome == pending, "semaphore: waiter resolved twice")
	w.outcome = o
	close(w.ready)
}

// err must be called only after ready is closed.
func (w *waiter) err() error {
	switch w.outcome {
	case dropped:
		return errors.E(errors.Unavailable, "semaphore: waiter dropped before a permit was granted")
	case canceled:
		return errors.E(errors.Canceled, "semaphore: wait canceled")
	}
	return nil
}

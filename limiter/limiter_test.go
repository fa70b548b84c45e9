// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package limiter

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestLimiter(t *testing.T) {
	l := New()
	l.Release(10)

	if err := l.Acquire(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if want, got := context.DeadlineExceeded, l.Acquire(ctx, 10); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	// The tokens collected by the failed acquisition were returned.
	if got, want := l.Available(), 5; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	l.Release(5)
	if err := l.Acquire(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
}

func TestLimiterConcurrently(t *testing.T) {
	const (
		N = 1000
		T = 100
	)
	var (
		pending int32
		begin   sync.WaitGroup
		g       errgroup.Group
	)
	l := New()
	l.Release(T)
	begin.Add(N)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			begin.Done()
			begin.Wait()
			n := rand.Intn(T) + 1
			if err := l.Acquire(context.Background(), n); err != nil {
				return err
			}
			if m := atomic.AddInt32(&pending, int32(n)); m > T {
				return fmt.Errorf("too many tokens: %d > %d", m, T)
			}
			atomic.AddInt32(&pending, -int32(n))
			l.Release(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, T, l.Available())
}

// TestLimiterFair verifies that a large request at the head of the
// line is not starved by smaller requests that arrive later.
func TestLimiterFair(t *testing.T) {
	l := New()
	l.Release(1)
	big := make(chan error, 1)
	go func() { big <- l.Acquire(context.Background(), 3) }()
	for l.Available() != 0 {
		time.Sleep(time.Millisecond)
	}
	small := make(chan error, 1)
	go func() { small <- l.Acquire(context.Background(), 1) }()
	l.Release(1)
	l.Release(1)
	assert.NoError(t, <-big)
	select {
	case err := <-small:
		t.Fatalf("small acquisition overtook the large one: %v", err)
	case <-time.After(10 * time.Millisecond):
	}
	l.Release(1)
	assert.NoError(t, <-small)
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Acquire(context.Background(), 1000))
	l.Release(1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, l.Acquire(ctx, 1))
}

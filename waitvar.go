// waitvar.go: atomic integer cell with wait/notify
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"context"
	"sync"
	"sync/atomic"
)

// Int64 is an atomic int64 cell that goroutines can park on until its
// value satisfies a predicate, and that any mutator can wake waiters
// from. The standard library has no futex-style "wait while predicate
// false" primitive for a plain integer, so this closes that gap with a
// broadcast channel that is closed and replaced on every notify — the
// same technique as a sync.Cond, but condition-variable-free so callers
// can combine it with context cancellation.
type Int64 struct {
	v      atomic.Int64
	mu     sync.Mutex
	waitCh chan struct{}
}

// NewInt64 returns an Int64 cell initialized to v.
func NewInt64(v int64) *Int64 {
	n := &Int64{waitCh: make(chan struct{})}
	n.v.Store(v)
	return n
}

// Load reads the current value.
func (n *Int64) Load() int64 { return n.v.Load() }

// Store sets the value and wakes every waiter.
func (n *Int64) Store(v int64) {
	n.v.Store(v)
	n.wake()
}

// Add adds delta and returns the new value, waking every waiter.
func (n *Int64) Add(delta int64) int64 {
	v := n.v.Add(delta)
	n.wake()
	return v
}

// CompareAndSwap performs a CAS and, if it succeeds, wakes every waiter.
func (n *Int64) CompareAndSwap(old, newv int64) bool {
	if n.v.CompareAndSwap(old, newv) {
		n.wake()
		return true
	}
	return false
}

func (n *Int64) wake() {
	n.mu.Lock()
	close(n.waitCh)
	n.waitCh = make(chan struct{})
	n.mu.Unlock()
}

// Wait blocks until pred(n.Load()) is true or ctx is done, returning
// false in the latter case. pred is re-evaluated after every notify, so
// it must be cheap and side-effect-free.
func (n *Int64) Wait(ctx context.Context, pred func(int64) bool) bool {
	for {
		// Take the channel before checking pred: a wake that lands
		// after the check then still closes the channel being waited on.
		n.mu.Lock()
		ch := n.waitCh
		n.mu.Unlock()

		if pred(n.v.Load()) {
			return true
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}

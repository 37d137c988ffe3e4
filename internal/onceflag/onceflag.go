// Package onceflag implements a one-shot publication cell: a single CAS
// from "uninitialized" to "initializing" to "ready", with readers spinning
// on "ready". It is deliberately not sync.Once, because the board record is
// published before any Go runtime scheduler exists on the secondary harts —
// there is nothing for a blocked hart to yield to.
package onceflag

import (
	"sync/atomic"

	"github.com/felixonmars/rustsbi-qemu/internal/task"
)

const (
	stateUninit = iota
	stateInitializing
	stateReady
)

// Flag guards a single piece of global state published exactly once.
type Flag struct {
	state atomic.Uint32
}

// Do runs fn exactly once across all callers (hart or goroutine) racing to
// call Do, then returns. Callers that lose the race to start initializing
// instead spin until the winner finishes. fn must not call Do again.
func (f *Flag) Do(fn func()) {
	if f.state.Load() == stateReady {
		return
	}
	if f.state.CompareAndSwap(stateUninit, stateInitializing) {
		fn()
		f.state.Store(stateReady)
		return
	}
	f.Wait()
}

// Wait blocks until a Do call elsewhere has completed. It is used by
// callers that lose the race in Do, and by cmd/firmware's harts before they
// enter their wake loop.
func (f *Flag) Wait() {
	for f.state.Load() != stateReady {
		task.Pause()
	}
}

// Ready reports whether Do has completed without blocking.
func (f *Flag) Ready() bool {
	return f.state.Load() == stateReady
}

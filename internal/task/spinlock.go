// Package task carries the small set of cross-hart coordination primitives
// the firmware needs before any goroutine scheduler exists: a spinlock
// guarding short critical sections, and acquire/release fence helpers for
// the lock-free hart-start protocol. Adapted from the busy-wait style of
// runtime_tinygoriscv_qemu.go's spinLock/schedulerLock and from
// src/internal/task/queue.go's lockAtomics/unlockAtomics guard, trimmed down
// to what a scheduler-free context needs: no futex park/wake, because there
// is nothing to park against until S-mode has booted.
package task

import "sync/atomic"

// SpinLock is a simple test-and-set lock safe across harts. It must only
// guard very short sections (a handful of stores), since spinning harts
// cannot do anything else in the meantime.
type SpinLock struct {
	locked atomic.Uint32
}

// Lock blocks until the lock is acquired.
func (l *SpinLock) Lock() {
	for !l.locked.CompareAndSwap(0, 1) {
		pauseHint()
	}
}

// Unlock releases the lock. It is a bug to call Unlock without holding it.
func (l *SpinLock) Unlock() {
	l.locked.Store(0)
}

// ReleaseStore stores value into addr with release semantics: every store
// this hart performed before the call is visible to any hart that later
// observes this value via AcquireLoad. Used by the hart-start protocol
// (start_record <- ...; fence; state <- StartPending; fence; send_ipi) to
// separate the start-record write from the state write.
func ReleaseStore(addr *atomic.Uint32, value uint32) {
	addr.Store(value)
}

// AcquireLoad loads addr with acquire semantics: every store the writer
// performed before its matching ReleaseStore becomes visible to this hart
// after the load returns. Used by the receiving hart to read state before
// reading the start record it guards.
func AcquireLoad(addr *atomic.Uint32) uint32 {
	return addr.Load()
}

// Pause yields the current hart for one spin iteration. A no-op off-target;
// on RISC-V hardware implementing Zihintpause it hints the core to de-prioritize
// the spin loop briefly.
func Pause() {
	pauseHint()
}

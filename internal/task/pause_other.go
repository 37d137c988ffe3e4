//go:build !tinygo.riscv

package task

// pauseHint has nothing cheaper to do off-target; kept as a plain spin so
// that SpinLock behaves identically under host unit tests.
func pauseHint() {}

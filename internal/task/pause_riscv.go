//go:build tinygo.riscv

package task

import "device/riscv"

// pauseHint is a no-op on QEMU TCG but cheap on hardware that implements
// Zihintpause; included for completeness.
func pauseHint() {
	riscv.Asm("pause")
}

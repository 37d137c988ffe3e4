//go:build tinygo.riscv

package board

import "device/riscv"

// fatal reports a configuration error and halts the hart. Board discovery
// failures are not recoverable: the firmware cannot proceed without
// knowing where the CLINT is.
func fatal(err error) {
	println("fatal error:", err.Error())
	for {
		riscv.Asm("wfi")
	}
}

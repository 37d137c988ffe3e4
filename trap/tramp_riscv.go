//go:build tinygo.riscv && virt && qemu

package trap

import "unsafe"

// mToS and sToM are implemented in tramp_riscv.S. mToS behaves like an
// ordinary blocking call: it switches the hart into S-mode at ctx.MEPC and
// does not return to its caller until the hart traps back to M (mtvec
// points at sToM's entry, which restores the M-mode stack pointer saved in
// ctx word 0 and returns normally to whoever called mToS).
//
//go:extern m_to_s
func mToS(ctx *Context)

// MToS is the Go-callable entry point firmware.Run drives its trap loop
// with: run ctx's saved S-mode register file until the next trap, then
// return with ctx holding the new saved state (mcause/mtval are read
// separately by the caller, since they are not part of the persistent
// Context and the trap entry leaves them untouched in the CSRs).
func MToS(ctx *Context) {
	mToS(ctx)
}

//go:extern s_to_m
var sToMSym [0]uintptr

// VectorAddr returns the address firmware.Run installs into mtvec: the
// trap entry point the hardware jumps to on any M-mode trap.
func VectorAddr() uintptr {
	return uintptr(unsafe.Pointer(&sToMSym))
}

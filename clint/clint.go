// Package clint is a thin MMIO driver for the RISC-V Core-Local Interruptor
// (backwards compatible with the SiFive CLINT layout QEMU's "virt" machine
// exposes): per-hart software interrupt pending bits (MSIP) and timer
// compare registers (MTIMECMP), plus the shared MTIME counter.
//
// Register layout (offsets from the CLINT base reported by board
// discovery), matching QEMU's hw/intc/riscv_aclint.c:
//
//	0x0000 + 4*hart   MSIP[hart]      (32 bits)
//	0x4000 + 8*hart   MTIMECMP[hart]  (64 bits)
//	0xbff8            MTIME           (64 bits)
package clint

import (
	"runtime/volatile"
	"unsafe"
)

const (
	msipOffset     = 0x0000
	mtimecmpOffset = 0x4000
	mtimeOffset    = 0xbff8
)

// Driver is constructed once from the CLINT base address board discovery
// reports, then handed out as a process-wide singleton. It carries no
// internal state beyond the base address: every operation targets a
// specific hart's registers, so concurrent calls for different harts never
// conflict, and MTIME is read-only from this code's perspective.
type Driver struct {
	base uintptr
}

// New constructs a Driver over the CLINT MMIO range starting at base.
func New(base uintptr) Driver {
	return Driver{base: base}
}

func (d Driver) msip(hart uint32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(d.base + msipOffset + uintptr(hart)*4))
}

func (d Driver) mtimecmp(hart uint32) *volatile.Register64 {
	return (*volatile.Register64)(unsafe.Pointer(d.base + mtimecmpOffset + uintptr(hart)*8))
}

func (d Driver) mtime() *volatile.Register64 {
	return (*volatile.Register64)(unsafe.Pointer(d.base + mtimeOffset))
}

// SendSoft raises the software-interrupt-pending bit for hart, the IPI
// mechanism hart state management rides on.
func (d Driver) SendSoft(hart uint32) {
	d.msip(hart).Set(1)
}

// ClearSoft clears the software-interrupt-pending bit for hart.
func (d Driver) ClearSoft(hart uint32) {
	d.msip(hart).Set(0)
}

// GetMTime reads the free-running mtime counter.
func (d Driver) GetMTime() uint64 {
	return d.mtime().Get()
}

// SetMTimeCmp programs hart's timer compare register; mip.MTIP for hart is
// pending while mtime is at or past this value, and clear while it is below.
func (d Driver) SetMTimeCmp(hart uint32, value uint64) {
	d.mtimecmp(hart).Set(value)
}
